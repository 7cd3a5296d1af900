package drive

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/abduss/cloudbin/internal/auth"
	"github.com/abduss/cloudbin/internal/logger"
	"github.com/abduss/cloudbin/internal/metrics"
	"github.com/abduss/cloudbin/internal/ratelimit"
	"github.com/abduss/cloudbin/internal/record"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	actionGet       = "get"
	actionAddFile   = "addFile"
	actionAddFolder = "addFolder"
	actionRename    = "rename"
	actionDelete    = "delete"

	csrfRead  = "read"
	csrfWrite = "write"

	// envelopeBytes is the body allowance on top of file content for the
	// request fields and JSON framing.
	envelopeBytes          = 64 << 10
	defaultMaxContentBytes = 5 << 20
)

// RegisterRoutes mounts POST /jsonbin behind the session check.
func RegisterRoutes(router *gin.RouterGroup, service *Service, sessions *auth.Service, limiter *ratelimit.Limiter) {
	handler := &httpHandler{service: service}

	chain := []gin.HandlerFunc{}
	if limiter != nil {
		chain = append(chain, limiter.Middleware("drive"))
	}
	chain = append(chain, auth.SessionMiddleware(sessions), handler.dispatch)
	router.POST("/jsonbin", chain...)
}

type httpHandler struct {
	service *Service
}

type driveRequest struct {
	Action            string          `json:"action"`
	Data              json.RawMessage `json:"data"`
	FileID            string          `json:"fileId"`
	FolderID          string          `json:"folderId"`
	NewName           string          `json:"newName"`
	ItemType          string          `json:"itemType"`
	DeviceFingerprint string          `json:"deviceFingerprint"`
}

func (h *httpHandler) dispatch(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.bodyLimit())

	var req driveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.ObserveDrive("unknown", metrics.Outcome(http.StatusRequestEntityTooLarge))
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	want := csrfWrite
	switch req.Action {
	case actionGet:
		want = csrfRead
	case actionAddFile, actionAddFolder, actionRename, actionDelete:
	default:
		metrics.ObserveDrive("unknown", "bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}
	if c.GetHeader(auth.CSRFHeader) != want {
		metrics.ObserveDrive(req.Action, "forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid CSRF token"})
		return
	}

	session, ok := auth.CurrentSession(c)
	if !ok || !session.MatchesFingerprint(req.DeviceFingerprint) {
		metrics.ObserveDrive(req.Action, "unauthorized")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session does not belong to this device"})
		return
	}

	switch req.Action {
	case actionGet:
		h.get(c, session.StorageID)
	case actionAddFile:
		h.addFile(c, session.StorageID, req)
	case actionAddFolder:
		h.addFolder(c, session.StorageID, req)
	case actionRename:
		h.rename(c, session.StorageID, req)
	case actionDelete:
		h.delete(c, session.StorageID, req)
	}
}

// bodyLimit caps how much of a request body is read. Content is measured
// after JSON decoding, so escape-heavy content can hit this cap first.
func (h *httpHandler) bodyLimit() int64 {
	content := h.service.maxContentBytes
	if content <= 0 {
		content = defaultMaxContentBytes
	}
	return content + envelopeBytes
}

func (h *httpHandler) get(c *gin.Context, storageID string) {
	view, err := h.service.Get(c.Request.Context(), storageID)
	if err != nil {
		h.fail(c, actionGet, err)
		return
	}
	metrics.ObserveDrive(actionGet, "ok")
	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) addFile(c *gin.Context, storageID string, req driveRequest) {
	var in FileInput
	if !decodeData(c, actionAddFile, req.Data, &in) {
		return
	}
	if in.FolderID == "" {
		in.FolderID = req.FolderID
	}

	file, err := h.service.AddFile(c.Request.Context(), storageID, in)
	if err != nil {
		h.fail(c, actionAddFile, err)
		return
	}
	metrics.ObserveDrive(actionAddFile, "ok")
	c.JSON(http.StatusCreated, gin.H{"file": file})
}

func (h *httpHandler) addFolder(c *gin.Context, storageID string, req driveRequest) {
	var in FolderInput
	if !decodeData(c, actionAddFolder, req.Data, &in) {
		return
	}
	if in.ParentID == "" {
		in.ParentID = req.FolderID
	}

	folder, err := h.service.AddFolder(c.Request.Context(), storageID, in)
	if err != nil {
		h.fail(c, actionAddFolder, err)
		return
	}
	metrics.ObserveDrive(actionAddFolder, "ok")
	c.JSON(http.StatusCreated, gin.H{"folder": folder})
}

func (h *httpHandler) rename(c *gin.Context, storageID string, req driveRequest) {
	itemType, id := target(req)
	renamed, err := h.service.Rename(c.Request.Context(), storageID, itemType, id, req.NewName)
	if err != nil {
		h.fail(c, actionRename, err)
		return
	}
	metrics.ObserveDrive(actionRename, "ok")
	c.JSON(http.StatusOK, renamed)
}

func (h *httpHandler) delete(c *gin.Context, storageID string, req driveRequest) {
	itemType, id := target(req)
	result, err := h.service.Delete(c.Request.Context(), storageID, itemType, id)
	if err != nil {
		h.fail(c, actionDelete, err)
		return
	}
	metrics.ObserveDrive(actionDelete, "ok")
	c.JSON(http.StatusOK, gin.H{"deleted": result})
}

func (h *httpHandler) fail(c *gin.Context, action string, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c).Error("drive action failed", zap.String("action", action), zap.Error(err))
		metrics.ObserveDrive(action, "error")
	} else {
		metrics.ObserveDrive(action, metrics.Outcome(status))
	}
	c.JSON(status, gin.H{"error": message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidItemType),
		errors.Is(err, ErrMissingID),
		errors.Is(err, ErrInvalidSize),
		errors.Is(err, record.ErrInvalidName),
		errors.Is(err, record.ErrRootImmutable):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrContentTooLarge):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrStorageNotFound),
		errors.Is(err, record.ErrFileNotFound),
		errors.Is(err, record.ErrFolderNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, record.ErrDuplicateID),
		errors.Is(err, record.ErrNameConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func decodeData(c *gin.Context, action string, raw json.RawMessage, out any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		metrics.ObserveDrive(action, metrics.Outcome(http.StatusBadRequest))
		c.JSON(http.StatusBadRequest, gin.H{"error": "data is required"})
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		metrics.ObserveDrive(action, metrics.Outcome(http.StatusBadRequest))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data payload"})
		return false
	}
	return true
}

// target resolves the item a rename or delete names. An omitted itemType is
// inferred from whichever id field is set.
func target(req driveRequest) (string, string) {
	itemType := req.ItemType
	if itemType == "" {
		if req.FileID != "" {
			itemType = ItemFile
		} else if req.FolderID != "" {
			itemType = ItemFolder
		}
	}
	if itemType == ItemFolder {
		return itemType, req.FolderID
	}
	return itemType, req.FileID
}
