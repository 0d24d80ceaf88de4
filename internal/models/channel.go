package models

// ChannelProfile is the public view of a user's channel with
// subscription aggregates relative to the viewer.
type ChannelProfile struct {
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
	CoverURL  string `json:"coverImage,omitempty"`

	SubscriberCount   int64 `json:"subscribersCount"`
	SubscribedToCount int64 `json:"channelsSubscribedToCount"`

	// True when the requesting user is subscribed to this channel
	IsSubscribed bool `json:"isSubscribed"`
}
