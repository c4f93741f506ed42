// Package service is the HTTP client for the remote code-analysis service.
//
// Every request is a multipart upload of one file plus scalar form fields:
//
//	POST /format/      indent, brace, comma          -> {"formatted": "..."}
//	POST /gpt_format/  language, model               -> text, possibly fenced
//	POST /review/      model, summary_only           -> chunked review JSON
//	POST /sast/        use_gpt_feedback, gpt_model   -> findings or a result string
//
// Non-2xx replies become a [*StatusError]; 401/403 are reported as
// authentication errors ([IsAuthError]) and 429 as rate limiting
// ([IsRateLimited]). Requests can be paced with a token-bucket limiter.
// Retries only apply to rate limiting and are off unless configured.
package service
