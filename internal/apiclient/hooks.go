package apiclient

// SignInPath is the navigation target after any terminal auth failure.
const SignInPath = "/"

// User-facing notices emitted on terminal auth failures.
const (
	NoticeSignInRequired = "Sign-in required. Please log in."
	NoticeSessionExpired = "Your session has expired. Please log in again."
)

// Navigator moves the user to another view, e.g. the sign-in entry point.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

// Notifier shows a blocking notice to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// RefreshOutcome classifies a token refresh attempt.
type RefreshOutcome string

const (
	// RefreshSucceeded means a new access token was stored.
	RefreshSucceeded RefreshOutcome = "success"
	// RefreshRejected means the backend refused the refresh token.
	RefreshRejected RefreshOutcome = "rejected"
	// RefreshFailed means the refresh call never got a response, or the
	// granted token could not be stored.
	RefreshFailed RefreshOutcome = "error"
	// RefreshShared means another call had already replaced the token.
	RefreshShared RefreshOutcome = "shared"
)

// Observer receives events about requests and refreshes. Implementations
// must be safe for concurrent use.
type Observer interface {
	// ObserveRequest is called once per HTTP exchange. status is 0 when
	// err is non-nil.
	ObserveRequest(method, path string, status int, err error)
	// ObserveRefresh is called once per refresh decision.
	ObserveRefresh(outcome RefreshOutcome)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, int, error) {}
func (nopObserver) ObserveRefresh(RefreshOutcome)             {}
