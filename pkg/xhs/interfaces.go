package xhs

import (
	"context"

	"xhsclient/pkg/api"
	"xhsclient/pkg/tokens"
)

// PlatformClient is the subset of *api.Client the facade drives
type PlatformClient interface {
	FetchHomefeed(ctx context.Context, req api.HomefeedRequest) (*api.Response[api.HomefeedData], error)
	FetchSearch(ctx context.Context, req api.SearchRequest) (*api.Response[api.SearchData], error)
	FetchComments(ctx context.Context, req api.CommentsRequest) (*api.Response[api.CommentsData], error)
	FetchFeed(ctx context.Context, req api.FeedRequest) (*api.Response[api.FeedData], error)
	FetchUserPosts(ctx context.Context, req api.UserPostsRequest) (*api.Response[api.UserPostsData], error)
	FetchUserInfo(ctx context.Context, req api.UserInfoRequest) (*api.Response[api.UserInfo], error)
}

// TokenService is the subset of *tokens.Client the facade reports on
type TokenService interface {
	Stats(ctx context.Context) (*tokens.Stats, error)
	Health(ctx context.Context) bool
}

// Recorder persists raw responses. *responselog.Recorder implements it.
type Recorder interface {
	Record(apiType string, response interface{}, metadata map[string]interface{}) (string, error)
}
