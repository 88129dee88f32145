package strategies_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/featurekit/featurekit-go/flagengine/constraints"
	"github.com/featurekit/featurekit-go/flagengine/contexts"
	"github.com/featurekit/featurekit-go/flagengine/strategies"
)

type segmentMap map[int][]constraints.Constraint

func (m segmentMap) SegmentConstraints(id int) ([]constraints.Constraint, bool) {
	cs, ok := m[id]
	return cs, ok
}

func rollout(pct string, extra map[string]string) map[string]string {
	params := map[string]string{strategies.ParamRollout: pct, strategies.ParamStickiness: "default"}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	segments := segmentMap{
		1: {{ContextName: "plan", Operator: constraints.In, Values: []string{"pro"}}},
	}
	opts := &strategies.Options{
		Segments: segments,
		Hostname: "web-01",
		Random:   func() string { return "random-1" },
	}

	withSegments := func(s strategies.Strategy, ids ...int) strategies.Strategy {
		s.Segments = ids
		return s
	}

	cases := []struct {
		name     string
		strategy strategies.Strategy
		ctx      *contexts.Context
		enabled  bool
		sticky   string
	}{
		{
			name:     "default is enabled",
			strategy: strategies.New("default", nil),
			ctx:      &contexts.Context{},
			enabled:  true,
		},
		{
			name: "failing constraint disables",
			strategy: strategies.New("default", nil,
				constraints.Constraint{ContextName: "plan", Operator: constraints.In, Values: []string{"free"}}),
			ctx:     &contexts.Context{Properties: map[string]string{"plan": "pro"}},
			enabled: false,
		},
		{
			name:     "matching segment enables",
			strategy: withSegments(strategies.New("default", nil), 1),
			ctx:      &contexts.Context{Properties: map[string]string{"plan": "pro"}},
			enabled:  true,
		},
		{
			name:     "non-matching segment disables",
			strategy: withSegments(strategies.New("default", nil), 1),
			ctx:      &contexts.Context{Properties: map[string]string{"plan": "free"}},
			enabled:  false,
		},
		{
			name:     "dangling segment fails closed",
			strategy: withSegments(strategies.New("default", nil), 1, 99),
			ctx:      &contexts.Context{Properties: map[string]string{"plan": "pro"}},
			enabled:  false,
		},
		{
			// murmur3("checkout-v2.user-42") % 100 == 34
			name:     "flexible rollout bucket below percentage",
			strategy: strategies.New("flexibleRollout", rollout("50", nil)),
			ctx:      &contexts.Context{UserID: "user-42"},
			enabled:  true,
			sticky:   "user-42",
		},
		{
			name:     "flexible rollout bucket equal to percentage",
			strategy: strategies.New("flexibleRollout", rollout("34", nil)),
			ctx:      &contexts.Context{UserID: "user-42"},
			enabled:  false,
			sticky:   "user-42",
		},
		{
			name:     "flexible rollout zero percent",
			strategy: strategies.New("flexibleRollout", rollout("0", nil)),
			ctx:      &contexts.Context{UserID: "user-42"},
			enabled:  false,
			sticky:   "user-42",
		},
		{
			name:     "flexible rollout hundred percent",
			strategy: strategies.New("flexibleRollout", rollout("100", nil)),
			ctx:      &contexts.Context{UserID: "user-42"},
			enabled:  true,
			sticky:   "user-42",
		},
		{
			name:     "missing rollout parameter fails closed",
			strategy: strategies.New("flexibleRollout", map[string]string{strategies.ParamStickiness: "userId"}),
			ctx:      &contexts.Context{UserID: "user-42"},
			enabled:  false,
			sticky:   "user-42",
		},
		{
			// murmur3("shared-group.user-42") % 100 == 10
			name:     "group id replaces toggle name",
			strategy: strategies.New("flexibleRollout", rollout("11", map[string]string{strategies.ParamGroupID: "shared-group"})),
			ctx:      &contexts.Context{UserID: "user-42"},
			enabled:  true,
			sticky:   "user-42",
		},
		{
			// murmur3("checkout-v2.acme") % 100 == 62
			name:     "custom stickiness field",
			strategy: strategies.New("flexibleRollout", map[string]string{strategies.ParamRollout: "62", strategies.ParamStickiness: "tenant"}),
			ctx:      &contexts.Context{UserID: "user-42", Properties: map[string]string{"tenant": "acme"}},
			enabled:  false,
			sticky:   "acme",
		},
		{
			name:     "custom stickiness falls back to userId",
			strategy: strategies.New("flexibleRollout", map[string]string{strategies.ParamRollout: "35", strategies.ParamStickiness: "tenant"}),
			ctx:      &contexts.Context{UserID: "user-42"},
			enabled:  true,
			sticky:   "user-42",
		},
		{
			// murmur3("checkout-v2.sess-9") % 100 == 57
			name:     "default stickiness falls back to sessionId",
			strategy: strategies.New("flexibleRollout", rollout("57", nil)),
			ctx:      &contexts.Context{SessionID: "sess-9"},
			enabled:  false,
			sticky:   "sess-9",
		},
		{
			// murmur3("checkout-v2.random-1") % 100 == 48
			name:     "no stickiness field uses the random value",
			strategy: strategies.New("flexibleRollout", rollout("49", nil)),
			ctx:      &contexts.Context{},
			enabled:  true,
			sticky:   "random-1",
		},
		{
			name:     "legacy gradual rollout on session id",
			strategy: strategies.New("gradualRolloutSessionId", map[string]string{strategies.ParamPercentage: "58"}),
			ctx:      &contexts.Context{UserID: "user-42", SessionID: "sess-9"},
			enabled:  true,
			sticky:   "sess-9",
		},
		{
			name:     "gradual rollout random stickiness",
			strategy: strategies.New("gradualRolloutRandom", map[string]string{strategies.ParamPercentage: "48"}),
			ctx:      &contexts.Context{UserID: "user-42"},
			enabled:  false,
			sticky:   "random-1",
		},
		{
			name:     "user with id listed",
			strategy: strategies.New("userWithId", map[string]string{strategies.ParamUserIDs: "user-1, user-42"}),
			ctx:      &contexts.Context{UserID: "user-42"},
			enabled:  true,
		},
		{
			name:     "user with id not listed",
			strategy: strategies.New("userWithId", map[string]string{strategies.ParamUserIDs: "user-1"}),
			ctx:      &contexts.Context{UserID: "user-42"},
			enabled:  false,
		},
		{
			name:     "remote address exact",
			strategy: strategies.New("remoteAddress", map[string]string{strategies.ParamIPs: "10.0.0.1, 192.168.1.1"}),
			ctx:      &contexts.Context{RemoteAddress: "192.168.1.1"},
			enabled:  true,
		},
		{
			name:     "remote address in CIDR",
			strategy: strategies.New("remoteAddress", map[string]string{strategies.ParamIPs: "10.0.0.0/8"}),
			ctx:      &contexts.Context{RemoteAddress: "10.20.30.40"},
			enabled:  true,
		},
		{
			name:     "remote address outside CIDR",
			strategy: strategies.New("remoteAddress", map[string]string{strategies.ParamIPs: "10.0.0.0/8"}),
			ctx:      &contexts.Context{RemoteAddress: "11.0.0.1"},
			enabled:  false,
		},
		{
			name:     "hostname from engine",
			strategy: strategies.New("applicationHostname", map[string]string{strategies.ParamHostNames: "WEB-01,web-02"}),
			ctx:      &contexts.Context{},
			enabled:  true,
		},
		{
			name:     "hostname property wins",
			strategy: strategies.New("applicationHostname", map[string]string{strategies.ParamHostNames: "web-01"}),
			ctx:      &contexts.Context{Properties: map[string]string{"hostname": "batch-07"}},
			enabled:  false,
		},
		{
			name:     "unknown custom strategy fails closed",
			strategy: strategies.New("myCustomStrategy", nil),
			ctx:      &contexts.Context{UserID: "user-42"},
			enabled:  false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := c.strategy
			s.Prepare()
			result := strategies.Evaluate(&s, c.ctx, "checkout-v2", opts)
			assert.Equal(t, c.enabled, result.Enabled)
			assert.Equal(t, c.sticky, result.StickinessValue)
		})
	}
}

func TestParseType(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		expected strategies.Type
		sticky   string
	}{
		{"default", strategies.Default, ""},
		{"flexibleRollout", strategies.FlexibleRollout, ""},
		{"gradualRollout", strategies.GradualRollout, ""},
		{"gradualRolloutUserId", strategies.GradualRollout, "userId"},
		{"userWithId", strategies.UserWithID, ""},
		{"remoteAddress", strategies.RemoteAddress, ""},
		{"applicationHostname", strategies.ApplicationHostname, ""},
		{"brandNewServerStrategy", strategies.UnknownCustom, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			typ, sticky := strategies.ParseType(c.name)
			assert.Equal(t, c.expected, typ)
			assert.Equal(t, c.sticky, sticky)
		})
	}
	assert.Equal(t, "unknown-custom", strategies.UnknownCustom.String())
	assert.Equal(t, "flexible-rollout", strategies.FlexibleRollout.String())
}

func TestStrategyUnmarshalJSON(t *testing.T) {
	t.Parallel()
	var s strategies.Strategy
	err := json.Unmarshal([]byte(`{
		"name": "flexibleRollout",
		"parameters": {"rollout": 25, "stickiness": "default", "groupId": "g"},
		"segments": [3],
		"constraints": [{"contextName": "appName", "operator": "IN", "values": ["web"]}]
	}`), &s)
	require.NoError(t, err)
	assert.Equal(t, strategies.FlexibleRollout, s.Type)
	assert.Equal(t, "25", s.Parameters["rollout"])
	assert.Equal(t, []int{3}, s.Segments)
	assert.Len(t, s.Constraints, 1)
	assert.NoError(t, s.Validate())
}

func TestEmptyConstraintStrategyDependsOnlyOnType(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		ctx := &contexts.Context{
			UserID:    rapid.String().Draw(t, "userId"),
			SessionID: rapid.String().Draw(t, "sessionId"),
		}
		s := strategies.New("default", nil)
		assert.True(t, strategies.Evaluate(&s, ctx, "t", nil).Enabled)

		unknown := strategies.New(rapid.StringMatching(`custom[A-Z][a-z]{0,8}`).Draw(t, "name"), nil)
		assert.False(t, strategies.Evaluate(&unknown, ctx, "t", nil).Enabled)
	})
}

func TestRolloutMonotonicity(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.StringN(1, 32, -1).Draw(t, "userId")
		p1 := rapid.IntRange(0, 100).Draw(t, "p1")
		p2 := rapid.IntRange(p1, 100).Draw(t, "p2")
		ctx := &contexts.Context{UserID: userID}

		low := strategies.New("flexibleRollout", rollout(fmt.Sprint(p1), nil))
		high := strategies.New("flexibleRollout", rollout(fmt.Sprint(p2), nil))
		if strategies.Evaluate(&low, ctx, "mono", nil).Enabled {
			assert.True(t, strategies.Evaluate(&high, ctx, "mono", nil).Enabled)
		}
	})
}
