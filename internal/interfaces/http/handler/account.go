package handler

import (
	"github.com/gin-gonic/gin"
	customerapp "github.com/storefront/backend/internal/application/customer"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// AccountHandler serves the profile, address book and wishlist of the
// signed-in user
type AccountHandler struct {
	BaseHandler
	profiles  ProfileService
	addresses AddressService
	wishlist  WishlistService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(profiles ProfileService, addresses AddressService, wishlist WishlistService) *AccountHandler {
	return &AccountHandler{
		profiles:  profiles,
		addresses: addresses,
		wishlist:  wishlist,
	}
}

// Me handles GET /me
// @Summary      Current profile
// @Description  Profile of the signed-in user, created on first call
// @Tags         account
// @Produce      json
// @Success      200 {object} dto.Response{data=customerapp.ProfileResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /me [get]
func (h *AccountHandler) Me(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	identity := customerapp.Identity{UserID: userID}
	if claims := middleware.GetClaims(c); claims != nil {
		identity.Email = claims.Email
		identity.FullName = claims.UserMetadata.FullName
	}

	profile, err := h.profiles.Me(c.Request.Context(), identity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}

// ListAddresses handles GET /addresses, default address first
// @Summary      List addresses
// @Description  Saved shipping addresses, default first
// @Tags         account
// @Produce      json
// @Success      200 {object} dto.Response{data=[]customerapp.AddressResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /addresses [get]
func (h *AccountHandler) ListAddresses(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	addresses, err := h.addresses.ListAddresses(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, addresses)
}

// AddAddress handles POST /addresses
// @Summary      Add address
// @Description  Save a shipping address; the first one becomes the default
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body customerapp.AddAddressRequest true "Address"
// @Success      201 {object} dto.Response{data=customerapp.AddressResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /addresses [post]
func (h *AccountHandler) AddAddress(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req customerapp.AddAddressRequest
	if !h.bindJSON(c, &req) {
		return
	}

	address, err := h.addresses.AddAddress(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, address)
}

// DeleteAddress handles DELETE /addresses/:id
// @Summary      Delete address
// @Description  Remove a saved address
// @Tags         account
// @Produce      json
// @Param        id path string true "Address ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /addresses/{id} [delete]
func (h *AccountHandler) DeleteAddress(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	addressID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.addresses.DeleteAddress(c.Request.Context(), userID, addressID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListWishlist handles GET /wishlist
// @Summary      List wishlist
// @Description  Saved products, newest first
// @Tags         account
// @Produce      json
// @Success      200 {object} dto.Response{data=[]customerapp.WishlistItemResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /wishlist [get]
func (h *AccountHandler) ListWishlist(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	items, err := h.wishlist.List(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// AddToWishlist handles POST /wishlist/:product_id
// @Summary      Add to wishlist
// @Description  Save a product; saving twice is a no-op
// @Tags         account
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /wishlist/{product_id} [post]
func (h *AccountHandler) AddToWishlist(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	productID, ok := h.pathUUID(c, "product_id")
	if !ok {
		return
	}
	if err := h.wishlist.Add(c.Request.Context(), userID, productID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RemoveFromWishlist handles DELETE /wishlist/:product_id
// @Summary      Remove from wishlist
// @Description  Forget a saved product
// @Tags         account
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /wishlist/{product_id} [delete]
func (h *AccountHandler) RemoveFromWishlist(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	productID, ok := h.pathUUID(c, "product_id")
	if !ok {
		return
	}
	if err := h.wishlist.Remove(c.Request.Context(), userID, productID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
