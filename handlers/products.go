package handlers

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/database"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const topProductsLimit = 3

// GetProducts serves one page of the catalog for the query string filters.
func (h *Handler) GetProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	query := models.ParseProductQuery(c.QueryParams())
	page, err := h.products.ListProducts(ctx, query)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) GetFilterValues(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	values, err := h.products.FilterValues(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, values)
}

func (h *Handler) GetTopProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	products, err := h.products.TopProducts(ctx, topProductsLimit)
	if err != nil {
		return err
	}
	if products == nil {
		products = []models.Product{}
	}
	return c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c echo.Context) error {
	id, err := parseObjectID(c, "id", database.ErrProductNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	product, err := h.products.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

// CreateProduct inserts a placeholder product owned by the admin.
func (h *Handler) CreateProduct(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	product := models.NewSampleProduct(user.ID)
	if err := h.products.CreateProduct(ctx, product); err != nil {
		return err
	}

	h.log.Info("Product created", zap.String("product_id", product.ID.Hex()), zap.String("admin_id", user.ID.Hex()))
	return c.JSON(http.StatusCreated, product)
}

type productUpdateRequest struct {
	Name            string    `json:"name"`
	Price           flexFloat `json:"price"`
	Description     string    `json:"description"`
	Image           string    `json:"image"`
	Author          string    `json:"author"`
	Publisher       string    `json:"publisher"`
	ISBN            string    `json:"isbn"`
	Pages           flexFloat `json:"pages"`
	Language        string    `json:"language"`
	Binding         string    `json:"binding"`
	PublicationYear flexFloat `json:"publicationYear"`
	PreviewURL      string    `json:"previewUrl"`
	Category        string    `json:"category"`
	CountInStock    flexFloat `json:"countInStock"`
}

func (r productUpdateRequest) toUpdate() models.ProductUpdate {
	return models.ProductUpdate{
		Name:            r.Name,
		Price:           r.Price.Float(),
		Description:     r.Description,
		Image:           r.Image,
		Author:          r.Author,
		Publisher:       r.Publisher,
		ISBN:            r.ISBN,
		Pages:           r.Pages.Int(),
		Language:        r.Language,
		Binding:         r.Binding,
		PublicationYear: r.PublicationYear.Int(),
		PreviewURL:      r.PreviewURL,
		Category:        r.Category,
		CountInStock:    r.CountInStock.Int(),
	}
}

// UpdateProduct overwrites the editable fields of a product.
func (h *Handler) UpdateProduct(c echo.Context) error {
	id, err := parseObjectID(c, "id", database.ErrProductNotFound)
	if err != nil {
		return err
	}

	var req productUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid product data")
	}
	if req.Price < 0 || req.CountInStock < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Price and stock must not be negative")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	product, err := h.products.UpdateProduct(ctx, id, req.toUpdate())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c echo.Context) error {
	id, err := parseObjectID(c, "id", database.ErrProductNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.products.DeleteProduct(ctx, id); err != nil {
		return err
	}

	h.log.Info("Product deleted", zap.String("product_id", id.Hex()))
	return c.JSON(http.StatusOK, map[string]string{"message": "Product removed"})
}

type reviewRequest struct {
	Rating  flexFloat `json:"rating"`
	Comment string    `json:"comment"`
}

// CreateReview adds the caller's review. A user may review a product once.
func (h *Handler) CreateReview(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	id, err := parseObjectID(c, "id", database.ErrProductNotFound)
	if err != nil {
		return err
	}

	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid review data")
	}

	rating := req.Rating.Float()
	if rating != math.Trunc(rating) || rating < 1 || rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "Rating must be a whole number from 1 to 5")
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Comment is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	review := models.Review{
		ID:        primitive.NewObjectID(),
		Name:      user.Name,
		Rating:    int(rating),
		Comment:   comment,
		User:      user.ID,
		CreatedAt: h.now(),
	}
	if err := h.products.AddReview(ctx, id, review); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]string{"message": "Review added"})
}

// DeleteReview removes a review by id and refreshes the product rating.
func (h *Handler) DeleteReview(c echo.Context) error {
	productID, err := parseObjectID(c, "id", database.ErrProductNotFound)
	if err != nil {
		return err
	}
	reviewID, err := parseObjectID(c, "reviewId", database.ErrReviewNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.products.DeleteReview(ctx, productID, reviewID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Review removed"})
}
