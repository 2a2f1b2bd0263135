package handlers

import (
	"github.com/gin-gonic/gin"

	"funcid/internal/domain/functionalid"
	"funcid/internal/infrastructure/http/v1/dto"
)

// FunctionalIDHandler exposes generator allocation and lifecycle over HTTP.
type FunctionalIDHandler struct {
	BaseHandler
	service *functionalid.Service
}

// NewFunctionalIDHandler creates a new functional id handler.
func NewFunctionalIDHandler(service *functionalid.Service) *FunctionalIDHandler {
	return &FunctionalIDHandler{service: service}
}

// RegisterRoutes mounts read and allocation routes on public and
// administrative routes on admin. Both groups may be the same.
func (h *FunctionalIDHandler) RegisterRoutes(public, admin *gin.RouterGroup) {
	ids := public.Group("/functional-ids")
	{
		ids.GET("", h.List)
		ids.GET("/:label", h.Get)
		ids.POST("/:label/next", h.Next)
		ids.POST("/:label/next-numeric", h.NextNumeric)
		ids.POST("/:label/next-batch", h.NextBatch)
		ids.POST("/:label/next-batch-numeric", h.NextBatchNumeric)
	}
	public.GET("/decode/:encoded", h.Decode)

	adm := admin.Group("/functional-ids")
	{
		adm.POST("", h.Create)
		adm.DELETE("/:label", h.Drop)
		adm.PUT("/:label/sequence", h.SetSequence)
	}
}

// Create handles POST /functional-ids
func (h *FunctionalIDHandler) Create(c *gin.Context) {
	var req dto.CreateGeneratorRequest
	if !h.BindJSON(c, &req) {
		return
	}

	g, err := h.service.Create(c.Request.Context(), req.Label, req.Prefix, req.StartFrom)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromGenerator(g))
}

// List handles GET /functional-ids
func (h *FunctionalIDHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.GeneratorListResponse{Items: make([]dto.GeneratorResponse, 0, len(items))}
	for _, g := range items {
		resp.Items = append(resp.Items, dto.FromGenerator(g))
	}
	h.OK(c, resp)
}

// Get handles GET /functional-ids/:label
func (h *FunctionalIDHandler) Get(c *gin.Context) {
	g, err := h.service.Get(c.Request.Context(), c.Param("label"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromGenerator(g))
}

// Drop handles DELETE /functional-ids/:label
func (h *FunctionalIDHandler) Drop(c *gin.Context) {
	res, err := h.service.Drop(c.Request.Context(), c.Param("label"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.DropResponse{Deleted: res.Deleted, Message: res.Message})
}

// Next handles POST /functional-ids/:label/next
func (h *FunctionalIDHandler) Next(c *gin.Context) {
	h.next(c, false)
}

// NextNumeric handles POST /functional-ids/:label/next-numeric
func (h *FunctionalIDHandler) NextNumeric(c *gin.Context) {
	h.next(c, true)
}

func (h *FunctionalIDHandler) next(c *gin.Context, numeric bool) {
	id, err := h.service.Next(c.Request.Context(), c.Param("label"), numeric)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.IDResponse{ID: id})
}

// NextBatch handles POST /functional-ids/:label/next-batch
func (h *FunctionalIDHandler) NextBatch(c *gin.Context) {
	h.nextBatch(c, false)
}

// NextBatchNumeric handles POST /functional-ids/:label/next-batch-numeric
func (h *FunctionalIDHandler) NextBatchNumeric(c *gin.Context) {
	h.nextBatch(c, true)
}

func (h *FunctionalIDHandler) nextBatch(c *gin.Context, numeric bool) {
	var req dto.NextBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ids, err := h.service.NextBatch(c.Request.Context(), c.Param("label"), req.BatchSize, numeric)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.IDsResponse{IDs: ids})
}

// SetSequence handles PUT /functional-ids/:label/sequence
func (h *FunctionalIDHandler) SetSequence(c *gin.Context) {
	var req dto.SetSequenceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	id, err := h.service.SetSequence(c.Request.Context(), c.Param("label"), *req.Number, req.IsNumeric)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.IDResponse{ID: id})
}

// Decode handles GET /decode/:encoded
func (h *FunctionalIDHandler) Decode(c *gin.Context) {
	encoded := c.Param("encoded")
	v, err := h.service.Decode(encoded)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.DecodeResponse{Encoded: encoded, Value: v})
}
