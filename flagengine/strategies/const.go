package strategies

// Type is the closed set of strategy kinds. Unrecognised wire names map to UnknownCustom.
type Type uint8

const (
	UnknownCustom Type = iota
	Default
	FlexibleRollout
	GradualRollout
	UserWithID
	RemoteAddress
	ApplicationHostname
)

// Wire names of the strategy types.
const (
	NameDefault                 = "default"
	NameFlexibleRollout         = "flexibleRollout"
	NameGradualRollout          = "gradualRollout"
	NameGradualRolloutUserID    = "gradualRolloutUserId"
	NameGradualRolloutSessionID = "gradualRolloutSessionId"
	NameGradualRolloutRandom    = "gradualRolloutRandom"
	NameUserWithID              = "userWithId"
	NameRemoteAddress           = "remoteAddress"
	NameApplicationHostname     = "applicationHostname"
)

// Parameter names read by the built-in strategies.
const (
	ParamRollout    = "rollout"
	ParamPercentage = "percentage"
	ParamStickiness = "stickiness"
	ParamGroupID    = "groupId"
	ParamUserIDs    = "userIds"
	ParamIPs        = "IPs"
	ParamHostNames  = "hostNames"
)

// Stickiness keywords understood by the rollout strategies.
const (
	StickinessDefault = "default"
	StickinessRandom  = "random"
)

// ParseType maps a wire name to its Type. The legacy gradual rollout names carry a fixed stickiness,
// returned as the second value.
func ParseType(name string) (Type, string) {
	switch name {
	case NameDefault:
		return Default, ""
	case NameFlexibleRollout:
		return FlexibleRollout, ""
	case NameGradualRollout:
		return GradualRollout, ""
	case NameGradualRolloutUserID:
		return GradualRollout, "userId"
	case NameGradualRolloutSessionID:
		return GradualRollout, "sessionId"
	case NameGradualRolloutRandom:
		return GradualRollout, StickinessRandom
	case NameUserWithID:
		return UserWithID, ""
	case NameRemoteAddress:
		return RemoteAddress, ""
	case NameApplicationHostname:
		return ApplicationHostname, ""
	}
	return UnknownCustom, ""
}

func (t Type) String() string {
	switch t {
	case Default:
		return "default"
	case FlexibleRollout:
		return "flexible-rollout"
	case GradualRollout:
		return "gradual-rollout-with-custom-stickiness"
	case UserWithID:
		return "user-with-id"
	case RemoteAddress:
		return "remote-address"
	case ApplicationHostname:
		return "application-hostname"
	}
	return "unknown-custom"
}
