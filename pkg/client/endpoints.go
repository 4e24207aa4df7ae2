package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/circletools/circle-batch-client/pkg/batch"
	"github.com/circletools/circle-batch-client/pkg/classify"
)

// Forum API endpoints.
const (
	endpointList      = "/api.php/circle/list"
	endpointUserShow  = "/api.php/user/show"
	endpointVoteCheck = "/api.php/play/pds"
	endpointVoteDo    = "/api.php/play/pd_do"
	endpointLogin     = "/api.php/user/login"
	endpointSendCode  = "/api.php/index/pcode"
)

// ListRequest is the typed payload for the post listing endpoint.
type ListRequest struct {
	Page      int               `json:"page"`
	Order     map[string]string `json:"order"`
	Append    map[string]any    `json:"append"`
	WithCount []string          `json:"with_count"`
	Keyword   string            `json:"kw"`
}

// NewListRequest builds a listing request with the standard append template,
// newest posts first.
func NewListRequest(page int, keyword string) ListRequest {
	return ListRequest{
		Page:  page,
		Order: map[string]string{"create_time": "desc"},
		Append: map[string]any{
			"1":    "files",
			"3":    "is_dig",
			"6":    "play.u",
			"7":    "play_digs",
			"8":    "gt_info",
			"user": []string{"sex_text", "sex_p_text", "sex_o_text"},
		},
		WithCount: []string{"comments", "favos", "digs"},
		Keyword:   keyword,
	}
}

// PostUser is the embedded author reference on a post.
type PostUser struct {
	ID int64 `json:"id"`
}

// Post is one entry from the listing endpoint. Only the fields the batch
// layers consume are decoded; the remainder stays in the raw page payload.
type Post struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	User       *PostUser `json:"user"`
	Content    string    `json:"content"`
	CreateTime int64     `json:"create_time"`
}

// AuthorID returns the post author, preferring the embedded user record.
func (p *Post) AuthorID() int64 {
	if p.User != nil && p.User.ID != 0 {
		return p.User.ID
	}
	return p.UserID
}

// PostPage is one decoded page of the listing endpoint.
type PostPage struct {
	Page  int
	Posts []Post
	Raw   json.RawMessage
}

// User is the detail record behind the dedup cache.
type User struct {
	ID       int64       `json:"id"`
	UserName string      `json:"user_name"`
	NickName string      `json:"nick_name"`
	Height   json.Number `json:"height"`
	Weight   json.Number `json:"weight"`
	Age      json.Number `json:"age"`
	Birthday string      `json:"birthday"`
	SexText  string      `json:"sex_text"`
	SexOText string      `json:"sex_o_text"`
	SexPText string      `json:"sex_p_text"`
	LastTime int64       `json:"last_time"`
}

// Name returns the display name, falling back to a placeholder.
func (u *User) Name() string {
	if u.UserName != "" {
		return u.UserName
	}
	return fmt.Sprintf("user_%d", u.ID)
}

// ListPosts fetches one page of posts.
func (c *Client) ListPosts(ctx context.Context, page int, keyword string) (*PostPage, error) {
	env, err := c.post(ctx, endpointList, NewListRequest(page, keyword), true)
	if err != nil {
		return nil, err
	}
	if env.Code != classify.CodeSuccess {
		return nil, &APIError{Class: ErrorClassBusiness, Message: env.Msg}
	}

	var posts []Post
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &posts); err != nil {
			return nil, &APIError{Class: ErrorClassProtocol, Message: "malformed post list", Err: err}
		}
	}

	return &PostPage{Page: page, Posts: posts, Raw: env.Data}, nil
}

// GetUser fetches the full user record for an ID. This is the underlying
// fetch function behind the dedup cache.
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	env, err := c.post(ctx, endpointUserShow, map[string]int64{"id": id}, true)
	if err != nil {
		return nil, err
	}
	if env.Code != classify.CodeSuccess || len(env.Data) == 0 {
		return nil, &APIError{Class: ErrorClassBusiness, Message: env.Msg}
	}

	var user User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, &APIError{Class: ErrorClassProtocol, Message: "malformed user record", Err: err}
	}
	if user.ID == 0 {
		user.ID = id
	}
	return &user, nil
}

// VoteCheck probes whether a vote task is valid without acting on it.
// The raw envelope values are returned so callers can classify them.
func (c *Client) VoteCheck(ctx context.Context, id int64) (batch.RawResult, error) {
	env, err := c.post(ctx, endpointVoteCheck, map[string]string{"id": strconv.FormatInt(id, 10)}, true)
	if err != nil {
		return batch.RawResult{Err: err}, err
	}
	return batch.RawResult{Code: env.Code, Message: env.Msg, Payload: env.Data}, nil
}

// VoteDo performs the vote action for a task ID.
func (c *Client) VoteDo(ctx context.Context, id int64) (batch.RawResult, error) {
	env, err := c.post(ctx, endpointVoteDo, map[string]int64{"id": id, "type": 1}, true)
	if err != nil {
		return batch.RawResult{Err: err}, err
	}
	return batch.RawResult{Code: env.Code, Message: env.Msg, Payload: env.Data}, nil
}

// VoteUnit returns a unit of work that votes on the task key. With checkFirst
// set, a validity probe runs first and a failed probe short-circuits the task
// to a failed result without invoking the action call.
func (c *Client) VoteUnit(checkFirst bool) batch.UnitOfWork {
	return func(ctx context.Context, key batch.TaskKey) batch.RawResult {
		id := int64(key)

		if checkFirst {
			probe, err := c.VoteCheck(ctx, id)
			if err != nil {
				return probe
			}
			if probe.Code != classify.CodeSuccess {
				probe.Err = &APIError{Class: ErrorClassBusiness, Message: probe.Message}
				return probe
			}
		}

		action, _ := c.VoteDo(ctx, id)
		return action
	}
}

// ListUnit returns a unit of work that fetches the page numbered by the task
// key, for listing-style runs. The page payload rides along for downstream
// consumers.
func (c *Client) ListUnit(keyword string) batch.UnitOfWork {
	return func(ctx context.Context, key batch.TaskKey) batch.RawResult {
		env, err := c.post(ctx, endpointList, NewListRequest(int(key), keyword), true)
		if err != nil {
			return batch.RawResult{Err: err}
		}
		return batch.RawResult{Code: env.Code, Message: env.Msg, Payload: env.Data}
	}
}

// LoginRequest is the typed payload for password or SMS-code login.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Type     int    `json:"type"` // 1 = password, 2 = SMS code
	Password string `json:"password,omitempty"`
	Code     string `json:"pcode,omitempty"`
}

// Login authenticates and returns the session token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (string, error) {
	env, err := c.post(ctx, endpointLogin, req, false)
	if err != nil {
		return "", err
	}
	if env.Code != classify.CodeSuccess {
		return "", &APIError{Class: ErrorClassBusiness, Message: env.Msg}
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		return "", &APIError{Class: ErrorClassProtocol, Message: "login response missing token", Err: err}
	}
	return data.Token, nil
}

// SendCode requests an SMS login code for the phone number.
func (c *Client) SendCode(ctx context.Context, phone string) error {
	env, err := c.post(ctx, endpointSendCode, map[string]string{"scene": "login", "phone": phone}, false)
	if err != nil {
		return err
	}
	if env.Code != classify.CodeSuccess {
		return &APIError{Class: ErrorClassBusiness, Message: env.Msg}
	}
	return nil
}
