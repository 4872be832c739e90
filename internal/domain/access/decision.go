package access

// Outcome is the terminal state of one routing decision.
type Outcome int

const (
	Allow Outcome = iota
	RedirectLogin
	RedirectDefault
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDefault:
		return "redirect_default"
	default:
		return "unknown"
	}
}

// Credential is what the routing layer knows about the caller after decoding.
type Credential int

const (
	CredentialAbsent Credential = iota
	CredentialMalformed
	CredentialValid
)

func (c Credential) String() string {
	switch c {
	case CredentialValid:
		return "valid"
	case CredentialMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

// Decision records why a request was allowed or redirected.
type Decision struct {
	Outcome      Outcome
	Location     string
	Credential   Credential
	SubjectRank  Rank
	RequiredRank Rank
}

// Decide evaluates one request path. It is total: every combination of
// credential state, path and rank resolves to exactly one Outcome.
func (p *Policy) Decide(path string, cred Credential, rank Rank) Decision {
	d := Decision{Outcome: Allow, Credential: cred, SubjectRank: rank}
	if p.IsPublic(path) {
		return d
	}

	d.RequiredRank = p.RequiredRank(path)
	if cred != CredentialValid || !rank.Valid() {
		d.Outcome = RedirectLogin
		d.Location = p.LoginPath
		return d
	}
	if !Allowed(rank, d.RequiredRank) {
		d.Outcome = RedirectDefault
		d.Location = p.DefaultPath
		return d
	}
	return d
}
