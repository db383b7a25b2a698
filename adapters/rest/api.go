package rest

import (
	"context"
	"strconv"

	"github.com/lborres/volunteer/core"
)

func (c *Client) Me(ctx context.Context, token string) (*core.Identity, error) {
	body, err := c.do(ctx, request{op: core.OpMe, token: token})
	if err != nil {
		return nil, err
	}
	return decodeIdentity(body)
}

func (c *Client) Login(ctx context.Context, input core.LoginInput) (*core.AuthResult, error) {
	body, err := c.do(ctx, request{op: core.OpLogin, body: input})
	if err != nil {
		return nil, err
	}
	return decodeAuth(body)
}

func (c *Client) Register(ctx context.Context, input core.RegisterInput) (*core.AuthResult, error) {
	body, err := c.do(ctx, request{op: core.OpRegister, body: input})
	if err != nil {
		return nil, err
	}
	return decodeAuth(body)
}

func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, request{op: core.OpLogout, token: token})
	return err
}

// ProbeProfile returns nil for an existing profile and an *core.APIError
// matching core.ErrProfileIncomplete when the backend asks for completion.
func (c *Client) ProbeProfile(ctx context.Context, token string, role core.RoleName) error {
	_, err := c.do(ctx, request{
		op:     core.OpProfile,
		token:  token,
		params: map[string]string{"role": string(role)},
	})
	return err
}

func list[T any](ctx context.Context, c *Client, op, token string, params core.ListParams) ([]T, error) {
	ep, err := c.endpoints.Lookup(op)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, request{op: op, token: token, query: params.Query()})
	if err != nil {
		return nil, err
	}
	return DecodeList[T](body, ep.Metadata.Envelope)
}

func (c *Client) ListUsers(ctx context.Context, token string, params core.ListParams) ([]core.UserAccount, error) {
	return list[core.UserAccount](ctx, c, core.OpListUsers, token, params)
}

func (c *Client) SetUserActive(ctx context.Context, token string, id int64, active bool) error {
	_, err := c.do(ctx, request{
		op:     core.OpSetUserActive,
		token:  token,
		params: map[string]string{"id": strconv.FormatInt(id, 10)},
		body:   map[string]bool{"is_active": active},
	})
	return err
}

func (c *Client) ListLogs(ctx context.Context, token string, params core.ListParams) ([]core.SystemLog, error) {
	return list[core.SystemLog](ctx, c, core.OpListLogs, token, params)
}

func (c *Client) ListFeedback(ctx context.Context, token string, params core.ListParams) ([]core.Feedback, error) {
	return list[core.Feedback](ctx, c, core.OpListFeedback, token, params)
}

func (c *Client) ListOpportunities(ctx context.Context, token string, params core.ListParams) ([]core.Opportunity, error) {
	return list[core.Opportunity](ctx, c, core.OpListOpportunities, token, params)
}

func (c *Client) ListApplications(ctx context.Context, token string, params core.ListParams) ([]core.Application, error) {
	return list[core.Application](ctx, c, core.OpListApplications, token, params)
}

func (c *Client) SetApplicationStatus(ctx context.Context, token string, id int64, status core.ApplicationStatus) error {
	_, err := c.do(ctx, request{
		op:     core.OpSetApplication,
		token:  token,
		params: map[string]string{"id": strconv.FormatInt(id, 10)},
		body:   map[string]core.ApplicationStatus{"status": status},
	})
	return err
}

func (c *Client) ListAssignments(ctx context.Context, token string, params core.ListParams) ([]core.Assignment, error) {
	return list[core.Assignment](ctx, c, core.OpListAssignments, token, params)
}

func (c *Client) ListMessages(ctx context.Context, token string, params core.ListParams) ([]core.Message, error) {
	return list[core.Message](ctx, c, core.OpListMessages, token, params)
}
