package handler

import (
	"encoding/json"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	playground "github.com/go-playground/validator/v10"

	"github.com/lk2023060901/partysheet/app/sheet/internal/service"
	"github.com/lk2023060901/partysheet/pkg/checksum"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/sheet"
	"github.com/lk2023060901/partysheet/pkg/web"
	weberrors "github.com/lk2023060901/partysheet/pkg/web/errors"
	"github.com/lk2023060901/partysheet/pkg/web/validator"
)

// SheetHandler 物品表接口
type SheetHandler struct {
	svc      *service.SheetService
	reporter service.Reporter
	logger   logger.Logger
}

// NewSheetHandler 创建物品表处理器，reporter 可为 nil
func NewSheetHandler(svc *service.SheetService, reporter service.Reporter, l logger.Logger) *SheetHandler {
	return &SheetHandler{
		svc:      svc,
		reporter: reporter,
		logger:   l.Named("handler.sheet"),
	}
}

// CreateRequest 新建物品表请求，请求体可省略
type CreateRequest struct {
	Name string `json:"name" binding:"sheet_name"`
}

// Rules 请求体用到的自定义校验
func Rules() []validator.Rule {
	return []validator.Rule{
		{Tag: "sheet_name", Fn: validSheetName},
	}
}

// validSheetName 不超过 SheetNameMaxLen 个字符且不含控制字符，空名合法
func validSheetName(fl playground.FieldLevel) bool {
	name := fl.Field().String()
	if utf8.RuneCountInString(name) > sheet.SheetNameMaxLen {
		return false
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// CreateResponse 新建物品表响应
type CreateResponse struct {
	ID string `json:"id"`
}

// ApplyResponse 动作应用响应，重复动作只返回 duplicate
type ApplyResponse struct {
	Revision  int64 `json:"revision,omitempty"`
	Duplicate bool  `json:"duplicate,omitempty"`
}

// Register 注册路由
func (h *SheetHandler) Register(r *gin.Engine) {
	sheets := r.Group("/sheets")
	{
		sheets.POST("", h.Create)
		sheets.GET("/:id", h.Get)
		sheets.PATCH("/:id", h.Apply)
	}
}

// Create POST /sheets
func (h *SheetHandler) Create(c *gin.Context) {
	var req CreateRequest
	if c.Request.ContentLength != 0 {
		if !web.BindAndValidate(c, &req) {
			return
		}
	}

	rec, err := h.svc.Create(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	web.Created(c, CreateResponse{ID: rec.ID})
}

// Get GET /sheets/:id，返回快照原文并携带 ETag
func (h *SheetHandler) Get(c *gin.Context) {
	id := c.Param("id")
	ctx := logger.WithSheetID(c.Request.Context(), id)

	rec, err := h.svc.Get(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	body, err := rec.SnapshotJSON()
	if err != nil {
		h.fail(c, err)
		return
	}

	etag := checksum.ETag(body)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	if checksum.MatchETag(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Apply PATCH /sheets/:id，请求体为单个动作
func (h *SheetHandler) Apply(c *gin.Context) {
	id := c.Param("id")

	raw, err := c.GetRawData()
	if err != nil {
		web.Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, "failed to read request body")
		return
	}
	var a sheet.Action
	if err := json.Unmarshal(raw, &a); err != nil {
		web.Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, "invalid action: "+err.Error())
		return
	}

	res, err := h.svc.Apply(c.Request.Context(), id, a)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.Duplicate {
		web.Success(c, ApplyResponse{Duplicate: true})
		return
	}
	web.Success(c, ApplyResponse{Revision: res.Revision})
}

// fail 把服务层错误映射为业务错误码
func (h *SheetHandler) fail(c *gin.Context, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, service.ErrNotFound):
		web.Error(c, http.StatusNotFound, weberrors.CodeNotFound, "sheet not found")
	case errors.Is(err, service.ErrInvalidAction), errors.Is(err, service.ErrSnapshotAction):
		web.Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, err.Error())
	default:
		h.logger.ErrorContext(ctx, "request failed", "path", c.FullPath(), "error", err)
		if h.reporter != nil {
			h.reporter.CaptureError(ctx, err, map[string]string{"route": c.FullPath()})
		}
		web.Error(c, http.StatusInternalServerError, weberrors.CodeInternalError, "internal server error")
	}
}
