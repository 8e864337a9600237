// Package router maps resource operations onto fixed REST path templates.
//
// Routers carry no state and no retry logic of their own; they shape the
// path and body, then unwrap the named field of the JSON envelope.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"guildsync/internal/rest"
)

// Requester performs one REST call.
type Requester interface {
	Do(ctx context.Context, req rest.Request) (json.RawMessage, error)
}

// Router groups the per-resource routers over one Requester.
type Router struct {
	Servers        *Servers
	Channels       *Channels
	Members        *Members
	Bans           *Bans
	Roles          *Roles
	Messages       *Messages
	Reactions      *Reactions
	Docs           *Docs
	CalendarEvents *CalendarEvents
	ForumTopics    *ForumTopics
	ListItems      *ListItems
	Webhooks       *Webhooks
}

// New builds every router over requester.
func New(requester Requester) *Router {
	base := resource{requester: requester}

	return &Router{
		Servers:        &Servers{base},
		Channels:       &Channels{base},
		Members:        &Members{base},
		Bans:           &Bans{base},
		Roles:          &Roles{base},
		Messages:       &Messages{base},
		Reactions:      &Reactions{base},
		Docs:           &Docs{base},
		CalendarEvents: &CalendarEvents{base},
		ForumTopics:    &ForumTopics{base},
		ListItems:      &ListItems{base},
		Webhooks:       &Webhooks{base},
	}
}

type resource struct {
	requester Requester
}

// call performs req and decodes envelope[field] into T.
func call[T any](ctx context.Context, r resource, req rest.Request, field string) (T, error) {
	var zero T

	body, err := r.requester.Do(ctx, req)
	if err != nil {
		return zero, err
	}
	if field == "" {
		return zero, nil
	}
	if len(body) == 0 {
		return zero, fmt.Errorf("router: %s %s: empty response, want %q", req.Method, req.Path, field)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return zero, fmt.Errorf("router: decode %s %s envelope: %w", req.Method, req.Path, err)
	}
	raw, ok := envelope[field]
	if !ok {
		return zero, fmt.Errorf("router: %s %s: response missing %q", req.Method, req.Path, field)
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("router: decode %s %s %q: %w", req.Method, req.Path, field, err)
	}

	return out, nil
}

// exec performs req and discards the body.
func exec(ctx context.Context, r resource, req rest.Request) error {
	_, err := r.requester.Do(ctx, req)
	return err
}

func get(path string, query url.Values) rest.Request {
	return rest.Request{Method: http.MethodGet, Path: path, Query: query}
}

func post(path string, body any) rest.Request {
	return rest.Request{Method: http.MethodPost, Path: path, Body: body}
}

func put(path string, body any) rest.Request {
	return rest.Request{Method: http.MethodPut, Path: path, Body: body}
}

func patch(path string, body any) rest.Request {
	return rest.Request{Method: http.MethodPatch, Path: path, Body: body}
}

func del(path string) rest.Request {
	return rest.Request{Method: http.MethodDelete, Path: path}
}

// path joins escaped segments into an absolute path.
func path(segments ...any) string {
	out := ""
	for _, segment := range segments {
		var text string
		switch value := segment.(type) {
		case string:
			text = value
		case int:
			text = strconv.Itoa(value)
		default:
			text = fmt.Sprint(value)
		}
		out += "/" + url.PathEscape(text)
	}

	return out
}
