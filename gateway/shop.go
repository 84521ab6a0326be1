package gateway

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/example/hottubshop/pkg/cart"
	"github.com/example/hottubshop/pkg/checkout"
	"github.com/example/hottubshop/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type optionView struct {
	ID              string          `json:"id"`
	GroupName       string          `json:"groupName"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	ImageURL        string          `json:"imageUrl"`
	IsRequiredGroup bool            `json:"isRequiredGroup"`
	PriceDelta      decimal.Decimal `json:"priceDelta"`
}

type productView struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Options     []optionView    `json:"options"`
}

func newProductView(p models.Product, lang string) productView {
	v := productView{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.LocalizedName(lang),
		Description: p.LocalizedDescription(lang),
		ImageURL:    p.ImageURL,
		BasePrice:   p.BasePrice,
		Options:     make([]optionView, 0, len(p.Options)),
	}
	for _, o := range p.Options {
		v.Options = append(v.Options, optionView{
			ID:              o.ID,
			GroupName:       o.GroupName,
			Name:            o.LocalizedName(lang),
			Description:     o.LocalizedDescription(lang),
			ImageURL:        o.ImageURL,
			IsRequiredGroup: o.IsRequiredGroup,
			PriceDelta:      o.PriceDelta,
		})
	}
	return v
}

type cartView struct {
	Items  []models.CartItem `json:"items"`
	Totals models.Totals     `json:"totals"`
}

type configureRequest struct {
	OptionIDs []string `json:"optionIds"`
}

type addToCartRequest struct {
	ProductID string   `json:"productId" binding:"required"`
	OptionIDs []string `json:"optionIds"`
}

type checkoutRequest struct {
	models.Contact
	AcceptTerms      bool `json:"acceptTerms"`
	AcceptWithdrawal bool `json:"acceptWithdrawal"`
}

func (g *Gateway) listProducts(c *gin.Context) {
	products, err := g.svc.Catalog.List(c.Request.Context())
	if err != nil {
		g.fail(c, "list_products", err, nil)
		return
	}
	lang := language(c)
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p, lang))
	}
	c.JSON(http.StatusOK, gin.H{"products": views, "total": len(views)})
}

func (g *Gateway) getProduct(c *gin.Context) {
	id := c.Param("id")
	p, err := g.svc.Catalog.GetByID(c.Request.Context(), id)
	if err != nil {
		g.fail(c, "get_product", err, nil, zap.String("id", id))
		return
	}
	c.JSON(http.StatusOK, newProductView(p, language(c)))
}

func (g *Gateway) configure(c *gin.Context, productID string, optionIDs []string) (models.CartItem, error) {
	p, err := g.svc.Catalog.GetByID(c.Request.Context(), productID)
	if err != nil {
		return models.CartItem{}, err
	}
	return cart.Configure(p, optionIDs, language(c))
}

func (g *Gateway) configureProduct(c *gin.Context) {
	var req configureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	item, err := g.configure(c, id, req.OptionIDs)
	if err != nil {
		g.fail(c, "configure_product", err, nil, zap.String("id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "total": item.Total()})
}

func (g *Gateway) respondCart(c *gin.Context, status int) {
	items, totals, err := g.svc.Checkout.Quote(c.Request.Context(), owner(c))
	if err != nil {
		g.fail(c, "get_cart", err, nil)
		return
	}
	c.JSON(status, cartView{Items: items, Totals: totals})
}

func (g *Gateway) getCart(c *gin.Context) {
	g.respondCart(c, http.StatusOK)
}

func (g *Gateway) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := g.configure(c, req.ProductID, req.OptionIDs)
	if err != nil {
		g.fail(c, "add_to_cart", err, nil, zap.String("id", req.ProductID))
		return
	}
	if err := g.svc.Carts.Add(c.Request.Context(), owner(c), item); err != nil {
		g.fail(c, "add_to_cart", err, nil, zap.String("id", req.ProductID))
		return
	}
	g.respondCart(c, http.StatusCreated)
}

func (g *Gateway) clearCart(c *gin.Context) {
	if err := g.svc.Carts.Clear(c.Request.Context(), owner(c)); err != nil {
		g.fail(c, "clear_cart", err, nil)
		return
	}
	g.respondCart(c, http.StatusOK)
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid index %q", c.Param("index"))})
		return
	}
	if err := g.svc.Carts.RemoveAt(c.Request.Context(), owner(c), index); err != nil {
		g.fail(c, "remove_cart_item", err, nil, zap.Int("index", index))
		return
	}
	g.respondCart(c, http.StatusOK)
}

func (g *Gateway) submitCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := g.svc.Checkout.Submit(c.Request.Context(), checkout.Request{
		Owner:            owner(c),
		Contact:          req.Contact,
		AcceptTerms:      req.AcceptTerms,
		AcceptWithdrawal: req.AcceptWithdrawal,
		Language:         language(c),
	})
	if err != nil {
		g.fail(c, "checkout", err, gin.H{"state": res.State.String(), "form": req})
		return
	}

	body := gin.H{"state": res.State.String(), "order": res.Order}
	if res.HistoryError != nil {
		body["warning"] = "order was sent but could not be added to your order history"
	}
	c.JSON(http.StatusCreated, body)
}

func (g *Gateway) listOrders(c *gin.Context) {
	key := owner(c).Key()
	orders, err := g.svc.Orders.ListOrders(c.Request.Context(), key)
	if err != nil {
		g.fail(c, "list_orders", err, nil, zap.String("owner", key))
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}
