package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/badbar/internal/api"
	"github.com/hammamikhairi/badbar/internal/domain"
)

const writeWait = 10 * time.Second

var validate = validator.New()

type ingredientBody struct {
	Name   string `json:"name" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

type createRequest struct {
	Name         string           `json:"name" validate:"required"`
	Ingredients  []ingredientBody `json:"ingredients" validate:"dive"`
	Instructions string           `json:"instructions"`
	Image        string           `json:"image" validate:"omitempty,datauri"`
	UserID       string           `json:"userId" validate:"required"`
}

func (r createRequest) recipe() domain.Recipe {
	out := domain.Recipe{
		Name:         r.Name,
		Instructions: r.Instructions,
		Image:        r.Image,
		Owner:        domain.Principal(r.UserID),
	}
	for _, ing := range r.Ingredients {
		out.Ingredients = append(out.Ingredients, domain.Ingredient{Name: ing.Name, Amount: ing.Amount})
	}
	return out
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleAnonymous handles POST /v1/auth/anonymous.
func (s *Server) handleAnonymous(c *gin.Context) {
	p, err := s.backend.Issue(c.Request.Context())
	if err != nil {
		s.abort(c, fmt.Errorf("issuing principal: %w", err))
		return
	}
	s.metrics.principals.Inc()
	s.log.Debug("issued principal %s", p)
	c.JSON(http.StatusCreated, api.AnonymousResponse{UID: string(p)})
}

// handlePrincipal handles GET /v1/auth/principals/:uid. 204 if known.
func (s *Server) handlePrincipal(c *gin.Context) {
	p := domain.Principal(c.Param("uid"))
	ok, err := s.backend.Known(c.Request.Context(), p)
	if err != nil {
		s.abort(c, fmt.Errorf("checking principal: %w", err))
		return
	}
	if !ok {
		s.abort(c, fmt.Errorf("principal %s: %w", p, domain.ErrNotFound))
		return
	}
	c.Status(http.StatusNoContent)
}

// handleCreate handles POST /v1/collections/:collection/documents.
func (s *Server) handleCreate(c *gin.Context) {
	collection := c.Param("collection")

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, fmt.Errorf("invalid request body: %v: %w", err, domain.ErrInvalidRecipe))
		return
	}
	if err := validate.Struct(req); err != nil {
		s.abort(c, fmt.Errorf("%v: %w", err, domain.ErrInvalidRecipe))
		return
	}

	caller := principal(c)
	if domain.Principal(req.UserID) != caller {
		s.abort(c, fmt.Errorf("userId %s does not match caller: %w", req.UserID, domain.ErrForbidden))
		return
	}

	id, err := s.backend.Create(c.Request.Context(), collection, req.recipe())
	if err != nil {
		s.abort(c, fmt.Errorf("creating document: %w", err))
		return
	}
	s.metrics.created.WithLabelValues(collection).Inc()
	c.JSON(http.StatusCreated, api.CreateResponse{ID: id})
}

// parseQuery reads the watch filter. With no field the caller's own
// documents are watched.
func parseQuery(c *gin.Context, caller domain.Principal) (domain.Query, error) {
	q := domain.OwnedBy(caller)
	q.Collection = c.Param("collection")

	if field := c.Query(api.ParamField); field != "" {
		q.Where = domain.Filter{
			Field: field,
			Op:    domain.Operator(c.DefaultQuery(api.ParamOp, string(domain.OpEqual))),
			Value: c.Query(api.ParamValue),
		}
	}
	if err := q.Validate(); err != nil {
		return q, err
	}
	if q.Where.Field == domain.FieldOwner && domain.Principal(q.Where.Value) != caller {
		return q, fmt.Errorf("watching another principal's documents: %w", domain.ErrForbidden)
	}
	return q, nil
}

// handleWatch handles GET /v1/collections/:collection/watch. The socket
// receives the current result set, then a new one after every change.
// Results never include other principals' documents.
func (s *Server) handleWatch(c *gin.Context) {
	caller := principal(c)
	q, err := parseQuery(c, caller)
	if err != nil {
		s.abort(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	s.metrics.watches.Inc()
	defer s.metrics.watches.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unsubscribe, err := s.backend.Subscribe(ctx, q, func(snap domain.Snapshot) {
		msg := api.Snapshot(ownedBy(snap, caller))
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			s.log.Debug("watch write: %v", err)
			cancel()
			return
		}
		s.metrics.snapshots.Inc()
	})
	if err != nil {
		s.log.Error("subscribing %s where %s: %v", q.Collection, q.Where, err)
		status, _ := api.Status(err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, http.StatusText(status)),
			time.Now().Add(writeWait))
		return
	}

	// The client never sends data; reading only detects that it left.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	s.log.Debug("watch opened by %s on %s where %s", caller, q.Collection, q.Where)
	select {
	case <-ctx.Done():
	case <-s.closing:
	}
	unsubscribe()

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	s.log.Debug("watch closed by %s", caller)
}

// ownedBy keeps only caller's documents.
func ownedBy(snap domain.Snapshot, caller domain.Principal) domain.Snapshot {
	out := make(domain.Snapshot, 0, len(snap))
	for _, r := range snap {
		if r.Owner == caller {
			out = append(out, r)
		}
	}
	return out
}

// abort writes err as a JSON error response.
func (s *Server) abort(c *gin.Context, err error) {
	status, code := api.Status(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		s.log.Debug("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, api.ErrorResponse{Error: err.Error(), Code: code})
}
