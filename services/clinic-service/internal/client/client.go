// Package client talks to the clinic API over HTTP. It satisfies the booking
// session's SlotSource and Submitter so a terminal front end can drive the
// same flow as the web app.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/libs/httpx"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/availability"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/booking"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Options struct {
	BaseURL string
	// Token is sent as a bearer token when calling through the gateway.
	Token string
	// UserID and Role are sent as identity headers when calling the clinic
	// service directly, which only works inside the trusted network.
	UserID  string
	Role    string
	Timeout time.Duration
}

type Client struct {
	base *url.URL
	opts Options
	http *http.Client
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		base: base,
		opts: opts,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// APIError is a non-2xx response that did not map to a domain error.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

type SlotsPage struct {
	DoctorID    string              `json:"doctor_id"`
	HorizonDays int                 `json:"horizon_days"`
	Timezone    string              `json:"timezone"`
	Slots       []availability.Slot `json:"slots"`
}

func (c *Client) Slots(ctx context.Context, doctorID string, horizonDays int) ([]availability.Slot, error) {
	q := url.Values{}
	if horizonDays > 0 {
		q.Set("horizon_days", strconv.Itoa(horizonDays))
	}
	var page SlotsPage
	path := "/api/v1/doctors/" + url.PathEscape(doctorID) + "/slots"
	if err := c.do(ctx, http.MethodGet, path, q, nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Slots, nil
}

func (c *Client) Doctors(ctx context.Context, specialtyID int64) ([]model.Profile, error) {
	q := url.Values{}
	if specialtyID > 0 {
		q.Set("specialty_id", strconv.FormatInt(specialtyID, 10))
	}
	var page struct {
		Items []model.Profile `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/doctors", q, nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Book posts the booking. Without an idempotency key one is generated, so
// a transport retry of the same call cannot create two appointments.
func (c *Client) Book(ctx context.Context, req booking.BookRequest) (model.Appointment, error) {
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	body := map[string]any{
		"doctor_id": req.DoctorID,
		"start":     req.Start.UTC().Format(time.RFC3339),
	}
	if req.PatientID != "" {
		body["patient_id"] = req.PatientID
	}
	var appt model.Appointment
	hdr := http.Header{}
	hdr.Set("Idempotency-Key", key)
	if err := c.do(ctx, http.MethodPost, "/api/v1/appointments", nil, hdr, body, &appt); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, hdr http.Header, body, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	if c.opts.UserID != "" {
		req.Header.Set(httpx.UserIDHeader, c.opts.UserID)
		req.Header.Set(httpx.RoleHeader, c.opts.Role)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError turns an error body back into the domain error the server
// started from.
func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	switch body.Code {
	case "slot_taken":
		return model.ErrSlotTaken
	case "slot_unavailable":
		return fmt.Errorf("%w: %s", model.ErrSlotUnavailable, body.Error)
	case "rejected":
		return &model.RejectedError{Message: body.Error}
	case "invalid_input":
		return fmt.Errorf("%w: %s", model.ErrInvalidInput, body.Error)
	case "not_found":
		return model.ErrNotFound
	}
	switch resp.StatusCode {
	case http.StatusForbidden:
		return model.ErrPermissionDenied
	case http.StatusNotFound:
		return model.ErrNotFound
	case http.StatusConflict:
		return model.ErrSlotTaken
	}
	if body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
}

// IsAPIError reports whether err is an unmapped server error.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
