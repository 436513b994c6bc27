package handlers

import (
	"strconv"

	"civic-portal/internal/api/session"
	"civic-portal/internal/models"
	"civic-portal/internal/services"

	"github.com/gin-gonic/gin"
)

// UserHandler is the back-office user management.
type UserHandler struct {
	*Page
	userService *services.UserService
}

func NewUserHandler(page *Page, userService *services.UserService) *UserHandler {
	return &UserHandler{Page: page, userService: userService}
}

type UpdateUserRequest struct {
	Name   string `form:"nombre"`
	Email  string `form:"email"`
	Phone  string `form:"telefono"`
	RoleID string `form:"rol_id"`
	Active string `form:"activo"`
}

// GetUsers lists users filtered by role and a name/email search.
func (h *UserHandler) GetUsers(c *gin.Context) {
	filter := services.UserFilter{Role: c.Query("rol"), Search: c.Query("search")}
	users, err := h.userService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err, "Error al cargar los usuarios", "/admin")
		return
	}

	h.render(c, 200, "admin_usuarios", gin.H{
		"usuarios": users,
		"filtros":  gin.H{"rol": filter.Role, "search": filter.Search},
	})
}

func (h *UserHandler) EditUserPage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Usuario no encontrado", "/admin/usuarios")
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.flashRedirect(c, session.Error, "Usuario no encontrado", "/admin/usuarios")
			return
		}
		h.fail(c, err, "Error al editar el usuario", "/admin/usuarios")
		return
	}

	h.render(c, 200, "admin_editar_usuario", gin.H{"usuario": user})
}

// UpdateUser applies the back-office edit form.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Usuario no encontrado", "/admin/usuarios")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, err, "Error al editar el usuario", "/admin/usuarios")
		return
	}
	if req.RoleID == "" {
		req.RoleID = strconv.Itoa(models.RoleCitizen)
	}
	role, err := strconv.Atoi(req.RoleID)
	if err != nil {
		role = 0 // rejected by the role validation
	}

	user, err := h.userService.AdminUpdate(c.Request.Context(), id, services.AdminUserInput{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Role:   role,
		Active: req.Active != "",
	})
	if err != nil {
		if isNotFound(err) {
			h.flashRedirect(c, session.Error, "Usuario no encontrado", "/admin/usuarios")
			return
		}
		h.fail(c, err, "Error al editar el usuario", "/admin/usuarios/"+c.Param("id")+"/editar")
		return
	}

	h.record(c, "update", "usuarios", uintString(user.ID), "rol="+strconv.Itoa(user.Role))
	h.flashRedirect(c, session.Success, "Usuario actualizado correctamente", "/admin/usuarios")
}
