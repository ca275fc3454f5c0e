package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Aadiaditya9421/hospital-management-system/internal/apperrors"
	"github.com/Aadiaditya9421/hospital-management-system/internal/middleware"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
	"github.com/Aadiaditya9421/hospital-management-system/internal/utils"
)

// caller returns the authenticated principal, writing a 401 when there is
// none.
func caller(c *gin.Context) (*models.PrincipalRef, bool) {
	ref, ok := middleware.GetPrincipalFromContext(c)
	if !ok {
		utils.HandleError(c, apperrors.ErrAuthenticationRequired)
		return nil, false
	}
	return ref, true
}

// uintParam parses a positive integer path parameter, writing a 400 when it
// is malformed.
func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequest(c, "Invalid "+name+" format")
		return 0, false
	}
	return uint(id), true
}

// uintQuery parses an optional positive integer query parameter.
func uintQuery(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.BadRequest(c, "Invalid "+name+" format")
		return 0, false
	}
	return uint(id), true
}
