package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/minsu-dev/factory-ops/internal/audit"
	"github.com/minsu-dev/factory-ops/internal/cache"
	"github.com/minsu-dev/factory-ops/internal/middleware"
	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
)

// Backup file type tags.
const (
	backupFull     = "FULL"
	backupFiltered = "FILTERED"
)

// BackupHandler implements the admin export/import of all six collections
// as one JSON document. Import bypasses the reconciliation engine: restored
// events do not re-apply item deltas, the restored item rows already carry
// the resulting balances.
type BackupHandler struct {
	Users      *repository.UserRepo
	Items      *repository.ItemRepo
	Events     *repository.EventRepo
	Attendance *repository.AttendanceRepo
	Logs       *repository.LogRepo
	Options    *repository.OptionRepo
	Cache      *cache.Store
	Audit      *audit.Logger
	Loc        *time.Location
}

func NewBackupHandler(users *repository.UserRepo, items *repository.ItemRepo, events *repository.EventRepo,
	att *repository.AttendanceRepo, logs *repository.LogRepo, options *repository.OptionRepo,
	store *cache.Store, aud *audit.Logger, loc *time.Location) *BackupHandler {
	return &BackupHandler{
		Users: users, Items: items, Events: events, Attendance: att,
		Logs: logs, Options: options, Cache: store, Audit: aud, Loc: loc,
	}
}

// backupUser re-exposes the password that model.User hides from API
// responses. A FULL restore must carry credentials or every account breaks.
type backupUser struct {
	model.User
	Password string `json:"password"`
}

type exportInfo struct {
	Type      string          `json:"type"`
	Range     *map[string]any `json:"range,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type backupDoc struct {
	Users      []backupUser       `json:"users,omitempty"`
	Items      []model.Item       `json:"items,omitempty"`
	Events     []model.Event      `json:"events,omitempty"`
	Attendance []model.Attendance `json:"attendance,omitempty"`
	Logs       []model.LogEntry   `json:"logs,omitempty"`
	Options    []model.Option     `json:"options,omitempty"`
	ExportInfo exportInfo         `json:"exportInfo"`
}

func wrapUsers(users []model.User) []backupUser {
	out := make([]backupUser, 0, len(users))
	for _, u := range users {
		out = append(out, backupUser{User: u, Password: u.Password})
	}
	return out
}

func unwrapUsers(users []backupUser) []model.User {
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		u.User.Password = u.Password
		out = append(out, u.User)
	}
	return out
}

// Export handles GET /api/backup/export. Without ?start=&end= it dumps
// every collection (FULL); with a date range it exports events, attendance
// and logs inside the range (FILTERED).
func (h *BackupHandler) Export(c echo.Context) error {
	start := c.QueryParam("start")
	end := c.QueryParam("end")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	var doc backupDoc
	var err error
	if start == "" || end == "" {
		doc, err = h.exportFull(ctx)
	} else {
		doc, err = h.exportFiltered(ctx, start, end)
		if err == errBadRange {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "날짜 형식이 잘못되었습니다."})
		}
	}
	if err != nil {
		return fail(c, err)
	}

	filename := fmt.Sprintf("factory_backup_%s.json", time.Now().In(h.Loc).Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=`+filename)
	return c.JSONPretty(http.StatusOK, doc, "  ")
}

func (h *BackupHandler) exportFull(ctx context.Context) (backupDoc, error) {
	var doc backupDoc
	users, err := h.Users.List(ctx)
	if err != nil {
		return doc, err
	}
	if doc.Items, err = h.Items.List(ctx); err != nil {
		return doc, err
	}
	if doc.Events, err = h.Events.List(ctx); err != nil {
		return doc, err
	}
	if doc.Attendance, err = h.Attendance.ListAll(ctx); err != nil {
		return doc, err
	}
	if doc.Logs, err = h.Logs.List(ctx, "", 1<<30); err != nil {
		return doc, err
	}
	if doc.Options, err = h.Options.List(ctx); err != nil {
		return doc, err
	}
	doc.Users = wrapUsers(users)
	doc.ExportInfo = exportInfo{Type: backupFull, Timestamp: time.Now()}
	return doc, nil
}

var errBadRange = fmt.Errorf("invalid date range")

func (h *BackupHandler) exportFiltered(ctx context.Context, start, end string) (backupDoc, error) {
	var doc backupDoc
	from, err := time.ParseInLocation("2006-01-02", start, h.Loc)
	if err != nil {
		return doc, errBadRange
	}
	toDay, err := time.ParseInLocation("2006-01-02", end, h.Loc)
	if err != nil {
		return doc, errBadRange
	}
	to := toDay.AddDate(0, 0, 1).Add(-time.Millisecond)

	if doc.Events, err = h.Events.ListRange(ctx, from, to); err != nil {
		return doc, err
	}
	if doc.Attendance, err = h.Attendance.ListRange(ctx, start, end); err != nil {
		return doc, err
	}
	if doc.Logs, err = h.Logs.ListRange(ctx, from, to); err != nil {
		return doc, err
	}
	rng := map[string]any{"start": start, "end": end}
	doc.ExportInfo = exportInfo{Type: backupFiltered, Range: &rng, Timestamp: time.Now()}
	return doc, nil
}

// Import handles POST /api/backup/import with a multipart "backup" file.
// FULL wholesale-replaces the collections (logs are merged so history
// survives a restore); FILTERED appends.
func (h *BackupHandler) Import(c echo.Context) error {
	fileHeader, err := c.FormFile("backup")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "파일이 없습니다."})
	}
	f, err := fileHeader.Open()
	if err != nil {
		return fail(c, err)
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return fail(c, err)
	}
	var doc backupDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "유효하지 않은 백업 파일 형식입니다."})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()
	actor, _ := middleware.IdentityFrom(c)

	var message string
	switch doc.ExportInfo.Type {
	case backupFull:
		if err := h.importFull(ctx, doc); err != nil {
			return fail(c, err)
		}
		message = "전체 데이터 복구 성공"
	case backupFiltered:
		if err := h.importFiltered(ctx, doc); err != nil {
			return fail(c, err)
		}
		message = "기간 데이터 머지 성공"
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "유효하지 않은 백업 파일 형식입니다."})
	}

	h.Cache.Invalidate(ctx, cache.KeyInventory, cache.KeyOptions)
	detail := fmt.Sprintf("%s (%s)", doc.ExportInfo.Type, fileHeader.Filename)
	if err := h.Audit.Record(ctx, actor.Username, "백업 복구", model.LogCategorySystem, "", detail); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": message})
}

func (h *BackupHandler) importFull(ctx context.Context, doc backupDoc) error {
	if doc.Users != nil {
		if err := h.Users.ReplaceAll(ctx, unwrapUsers(doc.Users)); err != nil {
			return err
		}
	}
	if doc.Items != nil {
		if err := h.Items.ReplaceAll(ctx, doc.Items); err != nil {
			return err
		}
	}
	if doc.Events != nil {
		if err := h.Events.ReplaceAll(ctx, doc.Events); err != nil {
			return err
		}
	}
	if doc.Attendance != nil {
		if err := h.Attendance.ReplaceAll(ctx, doc.Attendance); err != nil {
			return err
		}
	}
	if doc.Options != nil {
		if err := h.Options.ReplaceAll(ctx, doc.Options); err != nil {
			return err
		}
	}
	if doc.Logs != nil {
		return h.Logs.InsertMany(ctx, doc.Logs)
	}
	return nil
}

func (h *BackupHandler) importFiltered(ctx context.Context, doc backupDoc) error {
	if doc.Events != nil {
		if err := h.Events.InsertMany(ctx, doc.Events); err != nil {
			return err
		}
	}
	if doc.Attendance != nil {
		if err := h.Attendance.InsertMany(ctx, doc.Attendance); err != nil {
			return err
		}
	}
	if doc.Logs != nil {
		return h.Logs.InsertMany(ctx, doc.Logs)
	}
	return nil
}
