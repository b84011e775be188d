package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/minsu-dev/factory-ops/internal/cache"
)

const holidayTTL = 30 * 24 * time.Hour

// data.go.kr SpcdeInfoService public holiday endpoint.
const holidayBaseURL = "http://apis.data.go.kr/B090041/openapi/service/SpcdeInfoService/getRestDeInfo"

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// Holiday is one public holiday as the calendar front end consumes it.
type Holiday struct {
	Date string `json:"date"` // YYYY-MM-DD
	Name string `json:"name"`
}

// HolidaysHandler proxies the data.go.kr public holiday lookup and memoizes
// each year's list in Redis for 30 days.
type HolidaysHandler struct {
	Cache      *cache.Store
	Log        *logrus.Logger
	ServiceKey string
	HTTPClient *http.Client
	BaseURL    string
}

func NewHolidaysHandler(store *cache.Store, log *logrus.Logger, serviceKey string) *HolidaysHandler {
	return &HolidaysHandler{
		Cache:      store,
		Log:        log,
		ServiceKey: serviceKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    holidayBaseURL,
	}
}

// upstream response. body.items.item is an object for a single-holiday
// month query and an array otherwise; rawItems absorbs both.
type holidayUpstream struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			Items struct {
				Item json.RawMessage `json:"item"`
			} `json:"items"`
		} `json:"body"`
	} `json:"response"`
}

type holidayItem struct {
	Locdate  json.Number `json:"locdate"`
	DateName string      `json:"dateName"`
}

// parseHolidayItems handles the array-or-single-object shape of the
// upstream items field.
func parseHolidayItems(raw json.RawMessage) ([]holidayItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []holidayItem
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var one holidayItem
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []holidayItem{one}, nil
}

func formatHolidays(items []holidayItem) []Holiday {
	out := make([]Holiday, 0, len(items))
	for _, it := range items {
		d := it.Locdate.String()
		if len(d) != 8 {
			continue
		}
		out = append(out, Holiday{
			Date: fmt.Sprintf("%s-%s-%s", d[:4], d[4:6], d[6:8]),
			Name: it.DateName,
		})
	}
	return out
}

func (h *HolidaysHandler) fetch(ctx context.Context, year string) ([]Holiday, int, error) {
	u := fmt.Sprintf("%s?ServiceKey=%s&solYear=%s&_type=json&numOfRows=100",
		h.BaseURL, url.QueryEscape(h.ServiceKey), year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	defer resp.Body.Close()

	var upstream holidayUpstream
	if err := json.NewDecoder(resp.Body).Decode(&upstream); err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if upstream.Response.Header.ResultCode != "00" {
		return nil, http.StatusUnauthorized,
			fmt.Errorf("upstream rejected request: %s", upstream.Response.Header.ResultMsg)
	}
	items, err := parseHolidayItems(upstream.Response.Body.Items.Item)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return formatHolidays(items), http.StatusOK, nil
}

// List handles GET /api/holidays/:year.
func (h *HolidaysHandler) List(c echo.Context) error {
	year := c.Param("year")
	if !yearPattern.MatchString(year) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 연도입니다."})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	key := cache.HolidayKey(year)
	var cached []Holiday
	if h.Cache.GetJSON(ctx, key, &cached) {
		return c.JSON(http.StatusOK, cached)
	}

	holidays, status, err := h.fetch(ctx, year)
	if err != nil {
		h.Log.WithError(err).WithField("year", year).Error("holiday lookup failed")
		if status == http.StatusUnauthorized {
			return c.JSON(status, echo.Map{"error": "인증 실패"})
		}
		// Degraded answer keeps the calendar rendering without holidays.
		return c.JSON(http.StatusInternalServerError, []Holiday{})
	}
	if len(holidays) > 0 {
		h.Cache.SetJSON(ctx, key, holidays, holidayTTL)
	}
	return c.JSON(http.StatusOK, holidays)
}
