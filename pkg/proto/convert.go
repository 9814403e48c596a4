package proto

import "github.com/pinball-run/pinball/pkg/token"

// ToToken converts a wire Token into the domain token.Token.
func ToToken(t *Token) token.Token {
	if t == nil {
		return token.Token{}
	}
	return token.Token{
		Version:        t.GetVersion(),
		Name:           t.GetName(),
		Owner:          t.GetOwner(),
		ExpirationTime: t.GetExpirationTime(),
		Priority:       t.GetPriority(),
		Data:           t.GetData(),
	}
}

// FromToken converts a domain token.Token into its wire form.
func FromToken(t token.Token) *Token {
	return &Token{
		Version:        t.Version,
		Name:           t.Name,
		Owner:          t.Owner,
		ExpirationTime: t.ExpirationTime,
		Priority:       t.Priority,
		Data:           t.Data,
	}
}

func ToTokens(ts []*Token) []token.Token {
	out := make([]token.Token, 0, len(ts))
	for _, t := range ts {
		out = append(out, ToToken(t))
	}
	return out
}

func FromTokens(ts []token.Token) []*Token {
	out := make([]*Token, 0, len(ts))
	for _, t := range ts {
		out = append(out, FromToken(t))
	}
	return out
}
