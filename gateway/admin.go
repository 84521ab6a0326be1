package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/repository"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// productForm is the admin product editor. Prices arrive as typed by the admin, in German
// or invariant notation.
type productForm struct {
	SKU           string `json:"sku" form:"sku" binding:"required"`
	NameDe        string `json:"nameDe" form:"nameDe" binding:"required"`
	NameEn        string `json:"nameEn" form:"nameEn"`
	DescriptionDe string `json:"descriptionDe" form:"descriptionDe"`
	DescriptionEn string `json:"descriptionEn" form:"descriptionEn"`
	ImageURL      string `json:"imageUrl" form:"imageUrl"`
	BasePrice     string `json:"basePrice" form:"basePrice" binding:"required"`
}

type optionForm struct {
	GroupName       string `json:"groupName" form:"groupName"`
	NewGroupName    string `json:"newGroupName" form:"newGroupName"`
	NameDe          string `json:"nameDe" form:"nameDe" binding:"required"`
	NameEn          string `json:"nameEn" form:"nameEn"`
	DescriptionDe   string `json:"descriptionDe" form:"descriptionDe"`
	DescriptionEn   string `json:"descriptionEn" form:"descriptionEn"`
	ImageURL        string `json:"imageUrl" form:"imageUrl"`
	IsRequiredGroup bool   `json:"isRequiredGroup" form:"isRequiredGroup"`
	PriceDelta      string `json:"priceDelta" form:"priceDelta"`
}

type groupRequiredForm struct {
	Required bool `json:"required"`
}

// bindForm binds a JSON or multipart form. Binding failures become field errors so that the
// caller can echo the submission back.
func bindForm(c *gin.Context, dst interface{}, verr *models.ValidationError) {
	err := c.ShouldBind(dst)
	if err == nil {
		return
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		for _, fe := range fields {
			verr.Add(fe.Field(), fe.Tag())
		}
		return
	}
	verr.Add("", err.Error())
}

func (f productForm) apply(p *models.Product, verr *models.ValidationError) {
	price, err := models.ParseMoney(f.BasePrice)
	if err != nil {
		verr.Add("BasePrice", "enter a valid price, e.g. 19999,00")
	}
	p.SKU = strings.TrimSpace(f.SKU)
	p.NameDe = strings.TrimSpace(f.NameDe)
	p.NameEn = strings.TrimSpace(f.NameEn)
	p.DescriptionDe = f.DescriptionDe
	p.DescriptionEn = f.DescriptionEn
	if url := strings.TrimSpace(f.ImageURL); url != "" {
		p.ImageURL = url
	}
	p.BasePrice = price
	*p = p.WithFallbacks()
}

func (f optionForm) group() string {
	if g := strings.TrimSpace(f.NewGroupName); g != "" {
		return g
	}
	return strings.TrimSpace(f.GroupName)
}

func (f optionForm) apply(o *models.Option, verr *models.ValidationError) {
	o.GroupName = f.group()
	if o.GroupName == "" {
		verr.Add("GroupName", "choose an existing group or enter a new one")
	}
	delta, err := models.ParseMoney(f.PriceDelta)
	if err != nil {
		verr.Add("PriceDelta", "enter a valid surcharge, e.g. 499,00")
	}
	o.NameDe = strings.TrimSpace(f.NameDe)
	o.NameEn = strings.TrimSpace(f.NameEn)
	o.DescriptionDe = f.DescriptionDe
	o.DescriptionEn = f.DescriptionEn
	if url := strings.TrimSpace(f.ImageURL); url != "" {
		o.ImageURL = url
	}
	o.IsRequiredGroup = f.IsRequiredGroup
	o.PriceDelta = delta
	*o = o.WithFallbacks()
}

// formImage stores an uploaded "image" file when the request is multipart. Nothing is
// stored while the form already has errors.
func (g *Gateway) formImage(c *gin.Context, folder string, verr *models.ValidationError) string {
	if !strings.HasPrefix(c.ContentType(), "multipart/") || !verr.Empty() {
		return ""
	}
	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return ""
		}
		verr.Add("image", err.Error())
		return ""
	}
	url, err := saveImage(g.svc.Images, folder, file)
	if err != nil {
		verr.Add("image", err.Error())
		return ""
	}
	return url
}

// discardImage removes an image stored by formImage for a write that did not happen.
func (g *Gateway) discardImage(url string) {
	if url == "" {
		return
	}
	if err := removeImage(g.svc.Images, url); err != nil {
		g.logger.Warn("Failed to remove orphaned image", zap.String("url", url), zap.Error(err))
	}
}

// rejectForm answers a failed admin write with the submitted form so nothing typed is lost.
func (g *Gateway) rejectForm(c *gin.Context, op string, err error, form interface{}, fields ...zap.Field) {
	g.fail(c, op, err, gin.H{"form": form}, fields...)
}

func (g *Gateway) adminListProducts(c *gin.Context) {
	products, err := g.svc.Catalog.List(c.Request.Context())
	if err != nil {
		g.fail(c, "admin_list_products", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

func (g *Gateway) adminCreateProduct(c *gin.Context) {
	var form productForm
	verr := models.NewValidationError()
	bindForm(c, &form, verr)

	var p models.Product
	form.apply(&p, verr)
	image := g.formImage(c, "products", verr)
	if image != "" {
		p.ImageURL = image
	}
	if err := verr.Err(); err != nil {
		g.rejectForm(c, "create_product", err, form)
		return
	}

	created, err := g.svc.Catalog.AddProduct(c.Request.Context(), p)
	if err != nil {
		g.discardImage(image)
		g.rejectForm(c, "create_product", err, form, zap.String("sku", p.SKU))
		return
	}
	g.audit(c, repository.ActionProductCreated, created.ID, map[string]interface{}{"sku": created.SKU})
	c.JSON(http.StatusCreated, created)
}

func (g *Gateway) adminUpdateProduct(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var form productForm
	verr := models.NewValidationError()
	bindForm(c, &form, verr)

	existing, err := g.svc.Catalog.GetByID(ctx, id)
	if err != nil {
		g.rejectForm(c, "update_product", err, form, zap.String("id", id))
		return
	}
	form.apply(&existing, verr)
	image := g.formImage(c, "products", verr)
	if image != "" {
		existing.ImageURL = image
	}
	if err := verr.Err(); err != nil {
		g.rejectForm(c, "update_product", err, form, zap.String("id", id))
		return
	}

	if err := g.svc.Catalog.UpdateProduct(ctx, existing); err != nil {
		g.discardImage(image)
		g.rejectForm(c, "update_product", err, form, zap.String("id", id))
		return
	}
	g.audit(c, repository.ActionProductUpdated, id, map[string]interface{}{"sku": existing.SKU})
	c.JSON(http.StatusOK, existing)
}

func (g *Gateway) adminDeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if err := g.svc.Catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		g.fail(c, "delete_product", err, nil, zap.String("id", id))
		return
	}
	g.audit(c, repository.ActionProductDeleted, id, nil)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (g *Gateway) adminListGroups(c *gin.Context) {
	id := c.Param("id")
	groups, err := g.svc.Catalog.Groups(c.Request.Context(), id)
	if err != nil {
		g.fail(c, "list_groups", err, nil, zap.String("id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (g *Gateway) adminSetGroupRequired(c *gin.Context) {
	id, group := c.Param("id"), c.Param("group")
	var form groupRequiredForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := g.svc.Catalog.SetGroupRequired(c.Request.Context(), id, group, form.Required); err != nil {
		g.fail(c, "set_group_required", err, nil, zap.String("id", id), zap.String("group", group))
		return
	}
	g.audit(c, repository.ActionGroupRequired, id, map[string]interface{}{"group": group, "required": form.Required})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (g *Gateway) adminCreateOption(c *gin.Context) {
	ctx := c.Request.Context()
	productID := c.Param("id")

	var form optionForm
	verr := models.NewValidationError()
	bindForm(c, &form, verr)

	if _, err := g.svc.Catalog.GetByID(ctx, productID); err != nil {
		g.rejectForm(c, "create_option", err, form, zap.String("id", productID))
		return
	}

	var opt models.Option
	form.apply(&opt, verr)
	image := g.formImage(c, "options", verr)
	if image != "" {
		opt.ImageURL = image
	}
	if err := verr.Err(); err != nil {
		g.rejectForm(c, "create_option", err, form, zap.String("id", productID))
		return
	}

	created, err := g.svc.Catalog.AddOption(ctx, productID, opt)
	if err != nil {
		g.discardImage(image)
		g.rejectForm(c, "create_option", err, form, zap.String("id", productID))
		return
	}
	g.audit(c, repository.ActionOptionCreated, created.ID, map[string]interface{}{"product": productID, "group": created.GroupName})
	c.JSON(http.StatusCreated, created)
}

func (g *Gateway) adminUpdateOption(c *gin.Context) {
	ctx := c.Request.Context()
	productID, optionID := c.Param("id"), c.Param("optionId")

	var form optionForm
	verr := models.NewValidationError()
	bindForm(c, &form, verr)

	p, err := g.svc.Catalog.GetByID(ctx, productID)
	if err != nil {
		g.rejectForm(c, "update_option", err, form, zap.String("id", productID))
		return
	}
	i := p.FindOption(optionID)
	if i < 0 {
		err := fmt.Errorf("option %s: %w", optionID, models.ErrNotFound)
		g.rejectForm(c, "update_option", err, form, zap.String("id", productID))
		return
	}

	opt := p.Options[i]
	form.apply(&opt, verr)
	image := g.formImage(c, "options", verr)
	if image != "" {
		opt.ImageURL = image
	}
	if err := verr.Err(); err != nil {
		g.rejectForm(c, "update_option", err, form, zap.String("id", productID))
		return
	}

	if err := g.svc.Catalog.UpdateOption(ctx, productID, opt); err != nil {
		g.discardImage(image)
		g.rejectForm(c, "update_option", err, form, zap.String("id", productID))
		return
	}
	g.audit(c, repository.ActionOptionUpdated, optionID, map[string]interface{}{"product": productID, "group": opt.GroupName})
	c.JSON(http.StatusOK, opt)
}

func (g *Gateway) adminDeleteOption(c *gin.Context) {
	productID, optionID := c.Param("id"), c.Param("optionId")
	if err := g.svc.Catalog.DeleteOption(c.Request.Context(), productID, optionID); err != nil {
		g.fail(c, "delete_option", err, nil, zap.String("id", productID))
		return
	}
	g.audit(c, repository.ActionOptionDeleted, optionID, map[string]interface{}{"product": productID})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (g *Gateway) adminUploadImage(c *gin.Context) {
	folder := c.DefaultPostForm("folder", "products")
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	url, err := saveImage(g.svc.Images, folder, file)
	if err != nil {
		g.fail(c, "upload_image", fmt.Errorf("%w: %v", models.ErrValidationFailed, err), nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (g *Gateway) adminAuditTrail(c *gin.Context) {
	if g.svc.Audit == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "audit log is not configured"})
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 {
		limit = 50
	}
	entityID := c.Param("entityId")
	logs, err := g.svc.Audit.Trail(c.Request.Context(), entityID, limit)
	if err != nil {
		g.fail(c, "audit_trail", fmt.Errorf("%w: %v", models.ErrPersistenceUnavailable, err), nil, zap.String("id", entityID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": logs, "total": len(logs)})
}
