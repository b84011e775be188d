package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/minsu-dev/factory-ops/internal/attendance"
	"github.com/minsu-dev/factory-ops/internal/audit"
	"github.com/minsu-dev/factory-ops/internal/cache"
	"github.com/minsu-dev/factory-ops/internal/middleware"
	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
)

// AttendanceHandler wires the clock-in/out engine and the admin listing
// routes.
type AttendanceHandler struct {
	Engine *attendance.Engine
	Repo   *repository.AttendanceRepo
	Cache  *cache.Store
	Audit  *audit.Logger
}

func NewAttendanceHandler(engine *attendance.Engine, repo *repository.AttendanceRepo,
	store *cache.Store, aud *audit.Logger) *AttendanceHandler {
	return &AttendanceHandler{Engine: engine, Repo: repo, Cache: store, Audit: aud}
}

// CheckIn records the caller's clock-in for today.
func (h *AttendanceHandler) CheckIn(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ident, _ := middleware.IdentityFrom(c)

	rec, err := h.Engine.CheckIn(ctx, ident)
	if errors.Is(err, attendance.ErrAlreadyClockedIn) {
		return c.JSON(http.StatusConflict, echo.Map{"message": "이미 출근 처리되었습니다."})
	}
	if err != nil {
		return fail(c, err)
	}
	if err := h.Audit.Record(ctx, ident.Username, "출근", model.LogCategoryAttendance,
		strconv.FormatUint(rec.ID, 10), rec.Date); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "출근 처리되었습니다.", "record": rec})
}

// CheckOut closes the caller's record for today.
func (h *AttendanceHandler) CheckOut(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ident, _ := middleware.IdentityFrom(c)

	rec, err := h.Engine.CheckOut(ctx, ident)
	switch {
	case errors.Is(err, attendance.ErrNoClockInRecord):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "출근 기록이 없습니다."})
	case errors.Is(err, attendance.ErrAlreadyClockedOut):
		return c.JSON(http.StatusConflict, echo.Map{"message": "이미 퇴근 처리되었습니다."})
	case err != nil:
		return fail(c, err)
	}
	if err := h.Audit.Record(ctx, ident.Username, "퇴근", model.LogCategoryAttendance,
		strconv.FormatUint(rec.ID, 10), rec.Date); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "퇴근 처리되었습니다.", "record": rec})
}

// Status returns today's record for the caller, or null.
func (h *AttendanceHandler) Status(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ident, _ := middleware.IdentityFrom(c)

	rec, err := h.Engine.Status(ctx, ident)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"record": nil})
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"record": rec})
}

// ListAll returns every record for the team calendar view.
func (h *AttendanceHandler) ListAll(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	recs, err := h.Repo.ListAll(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, recs)
}

type attendanceEditReq struct {
	Nickname string `json:"nickname"`
	ClockIn  string `json:"clockIn" validate:"required"`
	ClockOut string `json:"clockOut"`
}

// Edit overwrites an existing record's times and nickname (admin
// correction path; single actor, no lock). Duration is recomputed.
func (h *AttendanceHandler) Edit(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 ID입니다."})
	}
	var req attendanceEditReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 요청입니다."})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	clockIn, err := time.Parse(time.RFC3339, req.ClockIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "시간 형식이 잘못되었습니다."})
	}
	var clockOut *time.Time
	if req.ClockOut != "" {
		t, err := time.Parse(time.RFC3339, req.ClockOut)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "시간 형식이 잘못되었습니다."})
		}
		clockOut = &t
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rec, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	rec = applyAttendanceEdit(rec, clockIn, clockOut, req.Nickname)
	if err := h.Repo.Edit(ctx, rec); err != nil {
		return fail(c, err)
	}

	actor, _ := middleware.IdentityFrom(c)
	if err := h.Audit.Record(ctx, actor.Username, "근태 수정", model.LogCategoryAttendance,
		c.Param("id"), rec.Nickname+" "+rec.Date); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "근태 기록이 수정되었습니다.", "record": rec})
}

// applyAttendanceEdit overwrites the record's times for the admin
// correction path. An omitted clock-out keeps the recorded one; duration
// is recomputed from whatever pair remains.
func applyAttendanceEdit(rec model.Attendance, clockIn time.Time, clockOut *time.Time, nickname string) model.Attendance {
	rec.ClockIn = clockIn
	if nickname != "" {
		rec.Nickname = nickname
	}
	if clockOut != nil {
		rec.ClockOut = clockOut
	}
	if rec.ClockOut != nil {
		rec.Duration = attendance.Duration(rec.ClockIn, *rec.ClockOut)
	}
	return rec
}

// summaryResponse aggregates the matched records.
type summaryResponse struct {
	Records      []model.Attendance `json:"records"`
	TotalSeconds int64              `json:"totalSeconds"`
	TotalHours   decimal.Decimal    `json:"totalHours"`
}

// Summary filters by nickname/username substring and a YYYY-MM month
// prefix, and totals the worked time. Month-scoped reads are cached for
// five minutes; the cache key carries both filters.
func (h *AttendanceHandler) Summary(c echo.Context) error {
	nameQuery := c.QueryParam("name")
	month := c.QueryParam("month")

	ctx, cancel := reqCtx(c)
	defer cancel()

	key := cache.SummaryKey(nameQuery, month)
	var cached summaryResponse
	if h.Cache.GetJSON(ctx, key, &cached) {
		return c.JSON(http.StatusOK, cached)
	}

	recs, err := h.Repo.Search(ctx, nameQuery, month)
	if err != nil {
		return fail(c, err)
	}
	var total int64
	for _, rec := range recs {
		total += rec.Duration
	}
	resp := summaryResponse{
		Records:      recs,
		TotalSeconds: total,
		TotalHours:   model.Round1(decimal.NewFromInt(total).Div(decimal.NewFromInt(3600))),
	}
	h.Cache.SetJSON(ctx, key, resp, 5*time.Minute)
	return c.JSON(http.StatusOK, resp)
}
