package gateway

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/example/hottubshop/pkg/models"
	"github.com/spf13/afero"
)

const maxImageSize = 5 << 20

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".gif":  {},
	".svg":  {},
}

var imageFolders = map[string]struct{}{
	"products": {},
	"options":  {},
}

// saveImage copies an uploaded image to <folder>/<id><ext> on fs and returns its public
// URL below /img.
func saveImage(fs afero.Fs, folder string, file *multipart.FileHeader) (string, error) {
	if fs == nil {
		return "", errors.New("image uploads are not configured")
	}
	if _, ok := imageFolders[folder]; !ok {
		return "", fmt.Errorf("unknown image folder %q", folder)
	}
	ext := strings.ToLower(path.Ext(file.Filename))
	if _, ok := imageExtensions[ext]; !ok {
		return "", errors.New("unsupported image type, allowed: jpg, jpeg, png, webp, gif, svg")
	}
	if file.Size > maxImageSize {
		return "", errors.New("image file too large (max 5MB)")
	}

	if err := fs.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image folder: %w", err)
	}
	name := path.Join(folder, models.NewID()+ext)

	in, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer in.Close()

	out, err := fs.Create(name)
	if err != nil {
		return "", fmt.Errorf("failed to create image: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = fs.Remove(name)
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return "/img/" + name, nil
}

// removeImage deletes an image saved by saveImage, addressed by its public URL.
func removeImage(fs afero.Fs, url string) error {
	name := strings.TrimPrefix(url, "/img/")
	if fs == nil || name == url {
		return fmt.Errorf("not an uploaded image: %q", url)
	}
	return fs.Remove(name)
}
