package navaclient

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
)

type NewUser struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Role     types.UserRole `json:"role"`
}

type UserPatch struct {
	Name   *string         `json:"name,omitempty"`
	Role   *types.UserRole `json:"role,omitempty"`
	Active *bool           `json:"active,omitempty"`
}

type UserQuery struct {
	Query string
	Role  types.UserRole
	Page  int
	Limit int
}

type NewPayment struct {
	DriverID  uuid.UUID  `json:"driverId"`
	Amount    float64    `json:"amount"`
	ProofSent bool       `json:"proofSent"`
	Note      string     `json:"note,omitempty"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
}

type PaymentQuery struct {
	DriverID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

func (q PaymentQuery) values() url.Values {
	v := url.Values{}
	if q.DriverID != nil {
		v.Set("driverId", q.DriverID.String())
	}
	setDate(v, "from", q.From)
	setDate(v, "to", q.To)
	return v
}

type userEnvelope struct {
	User models.User `json:"user"`
}

func (c *Client) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	var out struct {
		Dashboard models.Dashboard `json:"dashboard"`
	}
	if err := c.do(ctx, c.api, http.MethodGet, "/admin/dashboard", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Dashboard, nil
}

func (c *Client) ListUsers(ctx context.Context, q UserQuery) (*models.UserList, error) {
	v := url.Values{}
	setString(v, "q", q.Query)
	setString(v, "role", string(q.Role))
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)

	var out models.UserList
	if err := c.do(ctx, c.api, http.MethodGet, "/admin/users", v, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	var out userEnvelope
	if err := c.do(ctx, c.api, http.MethodPost, "/admin/users", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) UpdateUser(ctx context.Context, id uuid.UUID, patch UserPatch) (*models.User, error) {
	var out userEnvelope
	if err := c.do(ctx, c.api, http.MethodPatch, "/admin/users/"+id.String(), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) ListPayments(ctx context.Context, q PaymentQuery) (*models.PaymentList, error) {
	var out models.PaymentList
	if err := c.do(ctx, c.api, http.MethodGet, "/admin/payments", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RegisterPayment(ctx context.Context, in NewPayment) (*models.Payment, error) {
	var out struct {
		Payment models.Payment `json:"payment"`
	}
	if err := c.do(ctx, c.api, http.MethodPost, "/admin/payments", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Payment, nil
}

// MyPayments lists the payments made to the calling driver.
func (c *Client) MyPayments(ctx context.Context) (*models.PaymentList, error) {
	var out models.PaymentList
	if err := c.do(ctx, c.api, http.MethodGet, "/driver/payments", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DriverAnalytics(ctx context.Context) ([]models.DriverStats, error) {
	var out struct {
		Items []models.DriverStats `json:"items"`
	}
	if err := c.do(ctx, c.api, http.MethodGet, "/admin/analytics/drivers", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func joinFieldErrors(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, "; ")
}
