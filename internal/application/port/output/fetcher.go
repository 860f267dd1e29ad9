package output

import "context"

type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
