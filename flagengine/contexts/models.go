// Package contexts holds the read-only evaluation input passed into every toggle evaluation.
package contexts

import (
	"time"
)

// Names of the fixed context fields as they appear in constraints and stickiness parameters.
const (
	FieldUserID        = "userId"
	FieldSessionID     = "sessionId"
	FieldRemoteAddress = "remoteAddress"
	FieldCurrentTime   = "currentTime"
	FieldEnvironment   = "environment"
	FieldAppName       = "appName"

	// PropertyHostname is the custom property consulted by the applicationHostname strategy.
	PropertyHostname = "hostname"
)

// Context is the evaluation input. It must not be modified once handed to the engine.
type Context struct {
	UserID        string            `json:"userId,omitempty"`
	SessionID     string            `json:"sessionId,omitempty"`
	RemoteAddress string            `json:"remoteAddress,omitempty"`
	CurrentTime   time.Time         `json:"currentTime,omitzero"`
	Environment   string            `json:"environment,omitempty"`
	AppName       string            `json:"appName,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
}

// New creates a context for a user. The properties map is copied.
func New(userID string, properties map[string]string) *Context {
	ctx := &Context{UserID: userID}
	if len(properties) > 0 {
		ctx.Properties = make(map[string]string, len(properties))
		for k, v := range properties {
			ctx.Properties[k] = v
		}
	}
	return ctx
}

// WithCurrentTime returns ctx itself when it already carries a current time, otherwise a shallow
// copy stamped with now. The properties map is shared, never written.
func (c *Context) WithCurrentTime(now time.Time) *Context {
	if c == nil {
		return &Context{CurrentTime: now}
	}
	if !c.CurrentTime.IsZero() {
		return c
	}
	stamped := *c
	stamped.CurrentTime = now
	return &stamped
}

// Now returns the context's current time, falling back to the wall clock.
func (c *Context) Now() time.Time {
	if c == nil || c.CurrentTime.IsZero() {
		return time.Now()
	}
	return c.CurrentTime
}

// Value resolves a field name: fixed fields first, then custom properties. Empty fixed fields are
// reported as absent.
func (c *Context) Value(field string) (string, bool) {
	if c == nil {
		return "", false
	}
	var v string
	switch field {
	case FieldUserID:
		v = c.UserID
	case FieldSessionID:
		v = c.SessionID
	case FieldRemoteAddress:
		v = c.RemoteAddress
	case FieldEnvironment:
		v = c.Environment
	case FieldAppName:
		v = c.AppName
	case FieldCurrentTime:
		return c.Now().UTC().Format(time.RFC3339Nano), true
	default:
		v, ok := c.Properties[field]
		return v, ok
	}
	return v, v != ""
}

// DefaultStickiness returns the first of userId and sessionId that is set.
func (c *Context) DefaultStickiness() (string, bool) {
	if v, ok := c.Value(FieldUserID); ok {
		return v, true
	}
	return c.Value(FieldSessionID)
}
