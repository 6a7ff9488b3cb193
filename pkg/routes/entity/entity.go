package entity

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	entityrepo "github.com/Ramsey-B/fern/internal/repositories/entity"
	sessionsvc "github.com/Ramsey-B/fern/internal/services/session"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/hierarchy"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers entity routes under a company group
func Register(g *echo.Group) {
	g.GET("", GetEntityTree)
	g.GET("/tree", GetEntityTree)
	g.POST("", CreateEntity)
}

// EntityNode is one node of the rendered tree
type EntityNode struct {
	ID       string        `json:"id"`
	Code     string        `json:"code"`
	Name     string        `json:"name"`
	Path     []string      `json:"path"`
	Children []*EntityNode `json:"children,omitempty"`
}

// TreeResponse is the resolved hierarchy plus the entities that could not be
// attached. Orphans are surfaced so the dashboard can flag them instead of
// silently losing rows.
type TreeResponse struct {
	Roots   []*EntityNode `json:"roots"`
	Orphans []*EntityNode `json:"orphans,omitempty"`
}

// GetEntityTree returns the company's entity hierarchy
func GetEntityTree(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	ctx, repo, err := ectoinject.GetContext[entityrepo.EntityRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entities, err := repo.GetForCompany(ctx, tenantID, companyID)
	if err != nil {
		return err
	}

	forest := hierarchy.BuildForest(entities)

	resp := TreeResponse{Roots: make([]*EntityNode, 0, len(forest.Roots))}
	for _, root := range forest.Roots {
		resp.Roots = append(resp.Roots, toNode(root, models.EntityPath{root.Code}))
	}
	for _, orphan := range forest.Orphans {
		resp.Orphans = append(resp.Orphans, &EntityNode{
			ID:   orphan.ID,
			Code: orphan.Code,
			Name: orphan.Name,
		})
	}

	return c.JSON(http.StatusOK, resp)
}

func toNode(e *models.Entity, path models.EntityPath) *EntityNode {
	node := &EntityNode{
		ID:   e.ID,
		Code: e.Code,
		Name: e.Name,
		Path: path.Clone(),
	}
	for _, child := range e.Children {
		node.Children = append(node.Children, toNode(child, append(path, child.Code)))
	}
	return node
}

// CreateEntityRequest is the payload for creating an entity
type CreateEntityRequest struct {
	Code     string  `json:"code" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	ParentID *string `json:"parent_id,omitempty"`
}

// CreateEntity creates an entity under the company
func CreateEntity(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	req, err := utils.BindRequest[CreateEntityRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[entityrepo.EntityRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, tenantID, companyID, &models.Entity{
		Code:     req.Code,
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		return err
	}

	// the cached hierarchy is stale now
	ctx, manager, err := ectoinject.GetContext[*sessionsvc.Manager](ctx)
	if err == nil && manager != nil {
		manager.Evict(tenantID, companyID)
	}

	return c.JSON(http.StatusCreated, created)
}
