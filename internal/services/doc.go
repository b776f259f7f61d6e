// Package services talks to the remote playlist system.
//
// # Tokens
//
// [TokenManager] exchanges the long-lived refresh token for an access token through the
// [golang.org/x/oauth2] refresh grant, using HTTP basic auth built from the client id and
// secret. [TokenManager.Token] hands out the cached token while it is valid;
// [TokenManager.Acquire] forces a new exchange and is what the reconciler calls once before
// retrying a playlist creation rejected with 401. No other call is retried.
//
// # Client
//
// [SpotifyService] has one typed response struct per endpoint and a single decode step.
// Responses missing required fields fail with [shared.ErrParse] instead of defaulting to
// empty strings. Pagination is exposed one page at a time; callers follow the Next cursor.
//
// # Error Handling
//
//   - [shared.ErrAuth] : missing credentials or a failed token exchange
//   - [shared.ErrNetwork] : transport failure
//   - [*shared.APIError] : non-success status, unwraps to [shared.ErrAPI]
//   - [shared.ErrParse] : malformed or incomplete payload
//   - [shared.ErrValidation] : a batch larger than [MaxBatchSize]
package services
