package azdevops

import "context"

// collectPages drives a continuation-token pagination loop. It invokes
// fetch with an empty token first, appends each page's items in order
// (no deduplication), and follows the returned token until a page comes
// back without one. Termination is strictly on token absence: a server
// that keeps returning a non-empty token keeps getting asked, which is
// the documented behavior of the upstream convention, not a page cap.
func collectPages[T any](ctx context.Context, fetch func(ctx context.Context, token string) ([]T, string, error)) ([]T, error) {
	var all []T
	token := ""
	for {
		items, next, err := fetch(ctx, token)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		token = next
	}
}
