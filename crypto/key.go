package crypto

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtos "github.com/cometbft/cometbft/libs/os"
)

// MemberKey is one entry of a member_keys.json keyring as written by
// `daod init`.
type MemberKey struct {
	Name    string          `json:"name"`
	Address string          `json:"address"`
	PubKey  ed25519.PubKey  `json:"pub_key"`
	PrivKey ed25519.PrivKey `json:"priv_key"`
}

type Signer struct {
	key MemberKey
}

// LoadKeyring reads every member key from the file. Exits on malformed
// input; the keyring is operator-provisioned.
func LoadKeyring(keyFilePath string) []*Signer {
	keyJSONBytes, err := os.ReadFile(keyFilePath)
	if err != nil {
		cmtos.Exit(err.Error())
	}
	var keys []MemberKey
	if err = json.Unmarshal(keyJSONBytes, &keys); err != nil {
		cmtos.Exit(fmt.Sprintf("Error reading member keys from %v: %v\n", keyFilePath, err))
	}
	signers := make([]*Signer, 0, len(keys))
	for _, k := range keys {
		signers = append(signers, &Signer{key: k})
	}
	return signers
}

// LoadSigner picks one key from the keyring, by name or address when given,
// otherwise the first entry.
func LoadSigner(keyFilePath string, nameOrAddr string) *Signer {
	signers := LoadKeyring(keyFilePath)
	if len(signers) == 0 {
		cmtos.Exit(fmt.Sprintf("no member keys in %v", keyFilePath))
	}
	if nameOrAddr == "" {
		return signers[0]
	}
	for _, s := range signers {
		if s.key.Name == nameOrAddr || s.key.Address == nameOrAddr {
			return s
		}
	}
	cmtos.Exit(fmt.Sprintf("member key %q not found in %v", nameOrAddr, keyFilePath))
	return nil
}

func NewSigner(priv ed25519.PrivKey, name string) *Signer {
	pub := priv.PubKey().(ed25519.PubKey)
	return &Signer{key: MemberKey{
		Name:    name,
		Address: pub.Address().String(),
		PubKey:  pub,
		PrivKey: priv,
	}}
}

func (s *Signer) PublicKey() []byte {
	return s.key.PubKey.Bytes()
}

func (s *Signer) Address() string {
	return s.key.Address
}

func (s *Signer) Sign(data []byte) ([]byte, error) {
	return s.key.PrivKey.Sign(data)
}
