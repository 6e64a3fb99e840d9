// Package rapid builds HTTP API clients from declared types instead of
// hand-written request code.
//
// An endpoint pairs a request struct with a result type. Struct tags declare
// where each field is written into the request (path, query, header, or one
// of the body encodings); the result type declares how the response is
// converted back. Calling the endpoint binds the arguments, builds the
// request, dispatches it through the client's transport and resolves the
// response, with no per-endpoint logic to write.
//
//	type GetUserParams struct {
//	    UserID int     `api:"path" validate:"required"`
//	    Expand *string `api:"query"`
//	}
//
//	type User struct {
//	    ID   int    `json:"id"`
//	    Name string `json:"name"`
//	}
//
//	var getUser = rapid.Get[GetUserParams, User]("/users/{user_id}")
//
//	client := rapid.NewClient().WithBaseURL("https://api.example.com")
//	user, err := getUser.Do(ctx, client, GetUserParams{UserID: 123})
//
// The binding plan for an endpoint is derived once, on first use, and cached;
// each call then only pays for building its own request. Plans are immutable
// and safe to share across concurrent calls.
//
// Use Endpoint.Go for a non-blocking call that delivers a single Result on a
// channel; it shares all binding and resolution logic with Do and differs
// only in how the transport round-trip is awaited.
package rapid
