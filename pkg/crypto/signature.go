// Package crypto names the signature schemes nodes sign gossip with.
package crypto

type SigType int

const (
	TypeED25519 SigType = iota
)

type Signature struct {
	SigType SigType
	Data    []byte
}
