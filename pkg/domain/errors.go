package domain

import "errors"

// error taxonomy of the prediction pipeline, wrap with fmt.Errorf("%w: ...") and check with errors.Is
var (
	// ErrConfiguration is a missing or invalid required setting, fatal at startup
	ErrConfiguration = errors.New("configuration error")
	// ErrModelLoad is a missing or malformed scoring artifact, fatal at startup
	ErrModelLoad = errors.New("model load error")
	// ErrFeedUnavailable is a transport failure or non-2xx response from the feed
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrFeedParse is a malformed feed document
	ErrFeedParse = errors.New("feed parse error")
	// ErrInference is a failure of the scoring backend
	ErrInference = errors.New("inference error")
)
