package common

// Kind classifies an Outcome. Every kind except KindOK is an expected failure
// that is answered to the client as text, never raised as a fault.
type Kind int

const (
	KindOK Kind = iota
	KindValidation
	KindNotFound
	KindState
	KindAuth
	KindUnknown
	// KindFault marks an unexpected store or transport failure. Its wire
	// text is GenericError, the same as an admin mismatch.
	KindFault
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	case KindAuth:
		return "auth"
	case KindFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Outcome is the literal response text sent back for a request.
type Outcome string

const (
	NameTooShort     Outcome = "Name too short"
	PasswordTooShort Outcome = "Password too short"
	CodeTooShort     Outcome = "Code too short"
	NameTooLong      Outcome = "Name too long"
	PasswordTooLong  Outcome = "Password too long"
	CodeTooLong      Outcome = "Code too long"

	UserExists     Outcome = "User already exists"
	KeyMissing     Outcome = "Key doesn't exist"
	KeyInUse       Outcome = "Key already in use"
	Registered     Outcome = "User successfully registered"
	UserNotFound   Outcome = "User doesn't exist"
	KeyExpired     Outcome = "Key expired"
	WrongPassword  Outcome = "Wrong password"
	AlreadyLogged  Outcome = "Already logged in"
	LoggedIn       Outcome = "Logged in"
	LoggedOut      Outcome = "Logged out"
	KeyTooShort    Outcome = "Key too short"
	KeyTooLong     Outcome = "Key too long"
	KeyExists      Outcome = "Key already exists"
	KeyAdded       Outcome = "Key added"
	KeyValidated   Outcome = "Key validated"
	GenericError   Outcome = "Error"
	UnknownRequest Outcome = "Unknown request"
)

var outcomeKinds = map[Outcome]Kind{
	NameTooShort:     KindValidation,
	PasswordTooShort: KindValidation,
	CodeTooShort:     KindValidation,
	NameTooLong:      KindValidation,
	PasswordTooLong:  KindValidation,
	CodeTooLong:      KindValidation,
	KeyTooShort:      KindValidation,
	KeyTooLong:       KindValidation,
	UserNotFound:     KindNotFound,
	KeyMissing:       KindNotFound,
	UserExists:       KindState,
	KeyExists:        KindState,
	KeyInUse:         KindState,
	KeyExpired:       KindState,
	AlreadyLogged:    KindState,
	WrongPassword:    KindAuth,
	GenericError:     KindAuth,
	Registered:       KindOK,
	LoggedIn:         KindOK,
	LoggedOut:        KindOK,
	KeyAdded:         KindOK,
	KeyValidated:     KindOK,
	UnknownRequest:   KindUnknown,
}

// Kind reports the error class of o.
func (o Outcome) Kind() Kind {
	if k, ok := outcomeKinds[o]; ok {
		return k
	}
	return KindUnknown
}

// OK reports whether o is a success outcome.
func (o Outcome) OK() bool { return o.Kind() == KindOK }

func (o Outcome) String() string { return string(o) }
