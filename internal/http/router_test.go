package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	intconfig "busticket/internal/config"
	"busticket/internal/http/handlers"
	"busticket/internal/repositories/memory"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	mem := memory.New()
	ledger := services.SeatLedger{Store: mem, Schedules: mem}
	h := handlers.Handler{
		Ledger:          ledger,
		Bookings:        services.BookingService{Store: mem, Ledger: ledger, Payments: services.ApprovingGateway{}},
		Schedules:       services.ScheduleService{Store: mem, Fleet: mem},
		Fleet:           services.FleetService{Store: mem},
		TrustBodyUserID: true,
	}
	return NewRouter(intconfig.Env{}, &h)
}

type call struct {
	method, path string
	user         int64
	role         string
	body         any
}

func do(t *testing.T, r *gin.Engine, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.user > 0 {
		req.Header.Set("X-User-ID", fmt.Sprint(c.user))
	}
	if c.role != "" {
		req.Header.Set("X-User-Role", c.role)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func num(v any) int64 {
	f, _ := v.(float64)
	return int64(f)
}

// seed registers a two seat bus and publishes a schedule priced 45.00.
func seed(t *testing.T, r *gin.Engine) (scheduleID int64, seats []int64) {
	t.Helper()
	w, body := do(t, r, call{method: http.MethodPost, path: "/api/admin/buses", user: 1, role: "admin", body: gin.H{
		"operator": "Northline", "number": "NL-100", "busType": "AC Seater",
		"seats": []gin.H{{"number": "1A"}, {"number": "1B"}},
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	busID := num(body["id"])

	w, body = do(t, r, call{method: http.MethodPost, path: "/api/admin/schedules", user: 1, role: "admin", body: gin.H{
		"busId": busID, "from": "Springfield", "to": "Shelbyville", "date": "2099-03-02",
		"departureTime": "08:00", "arrivalTime": "12:30", "price": 45,
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	scheduleID = num(body["id"])

	w, body = do(t, r, call{method: http.MethodGet, path: fmt.Sprintf("/api/seats/%d", scheduleID)})
	require.Equal(t, http.StatusOK, w.Code)
	for _, s := range body["seats"].([]any) {
		seat := s.(map[string]any)
		assert.Equal(t, "available", seat["status"])
		assert.Equal(t, 45.0, seat["price"])
		seats = append(seats, num(seat["seatId"]))
	}
	require.Len(t, seats, 2)
	return scheduleID, seats
}

func bookingBody(scheduleID int64, seat int64) gin.H {
	return gin.H{
		"scheduleId":   scheduleID,
		"seatIds":      []int64{seat},
		"contactEmail": "rider@example.com",
		"contactPhone": "+1 555 0100",
		"passengers":   []gin.H{{"name": "Ana Diaz", "age": 31, "gender": "female"}},
	}
}

func TestBookingFlow(t *testing.T) {
	r := newTestRouter()
	scheduleID, seats := seed(t, r)

	w, body := do(t, r, call{method: http.MethodPost, path: "/api/seats/lock", user: 7, body: gin.H{"scheduleId": scheduleID, "seatIds": []int64{seats[0]}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, body["lockedUntil"])

	w, body = do(t, r, call{method: http.MethodGet, path: fmt.Sprintf("/api/seats/%d", scheduleID), user: 7})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "selected", body["seats"].([]any)[0].(map[string]any)["status"])

	w, body = do(t, r, call{method: http.MethodPost, path: "/api/book", user: 7, body: bookingBody(scheduleID, seats[0])})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ticket, _ := body["ticketId"].(string)
	assert.Regexp(t, `^BT000001-[0-9A-F]{8}$`, ticket)
	assert.Equal(t, 45.0, body["totalAmount"])

	w, body = do(t, r, call{method: http.MethodPost, path: "/api/book", user: 8, body: bookingBody(scheduleID, seats[0])})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "seat_conflict", body["code"])
	failed := body["details"].(map[string]any)["failed"].([]any)
	require.Len(t, failed, 1)
	assert.Equal(t, "booked", failed[0].(map[string]any)["reason"])

	w, body = do(t, r, call{method: http.MethodGet, path: "/api/ticket/" + ticket})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Springfield", body["schedule"].(map[string]any)["from"])

	w, body = do(t, r, call{method: http.MethodGet, path: "/api/bookings", user: 7})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["bookings"], 1)

	bookingID := num(body["bookings"].([]any)[0].(map[string]any)["bookingId"])
	w, _ = do(t, r, call{method: http.MethodPost, path: fmt.Sprintf("/api/bookings/%d/cancel", bookingID), user: 8})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = do(t, r, call{method: http.MethodPost, path: fmt.Sprintf("/api/bookings/%d/cancel", bookingID), user: 7})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", body["status"])
	assert.Equal(t, "refunded", body["paymentStatus"])
}

func TestReleaseSeatsEndpoint(t *testing.T) {
	r := newTestRouter()
	scheduleID, seats := seed(t, r)

	do(t, r, call{method: http.MethodPost, path: "/api/seats/lock", body: gin.H{"scheduleId": scheduleID, "seatIds": seats, "userId": 7}})

	w, body := do(t, r, call{method: http.MethodPost, path: "/api/seats/release", user: 8, body: gin.H{"seatIds": seats}})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "seat_conflict", body["code"])

	w, _ = do(t, r, call{method: http.MethodPost, path: "/api/seats/release", user: 7, body: gin.H{"seatIds": seats}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookingValidationErrors(t *testing.T) {
	r := newTestRouter()
	scheduleID, seats := seed(t, r)

	w, _ := do(t, r, call{method: http.MethodPost, path: "/api/book", user: 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad := bookingBody(scheduleID, seats[0])
	bad["contactEmail"] = "nope"
	w, body := do(t, r, call{method: http.MethodPost, path: "/api/book", user: 7, body: bad})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["details"], "contactEmail")

	mismatch := bookingBody(scheduleID, seats[0])
	mismatch["userId"] = 9
	w, _ = do(t, r, call{method: http.MethodPost, path: "/api/book", user: 7, body: mismatch})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, r, call{method: http.MethodPost, path: "/api/book", body: bookingBody(scheduleID, seats[0])})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLookupErrors(t *testing.T) {
	r := newTestRouter()

	w, _ := do(t, r, call{method: http.MethodGet, path: "/api/seats/abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, call{method: http.MethodGet, path: "/api/seats/42"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, call{method: http.MethodGet, path: "/api/ticket/BT000404-DEADBEEF"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := do(t, r, call{method: http.MethodGet, path: "/api/schedules/search?from=a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["details"], "date")

	w, _ = do(t, r, call{method: http.MethodGet, path: "/api/nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	r := newTestRouter()

	w, _ := do(t, r, call{method: http.MethodPost, path: "/api/admin/buses", body: gin.H{}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, r, call{method: http.MethodPost, path: "/api/admin/buses", user: 7, body: gin.H{}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSystemEndpoints(t *testing.T) {
	r := newTestRouter()

	w, _ := do(t, r, call{method: http.MethodGet, path: "/api/health"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := do(t, r, call{method: http.MethodGet, path: "/api/db-check"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "memory", body["driver"])

	w, body = do(t, r, call{method: http.MethodGet, path: "/api/routes"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, body["routes"])
}
