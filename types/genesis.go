package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto/ed25519"
)

// GenesisMember seeds a member record and its external bank balance. Stake,
// when set, is deposited into treasury custody during InitGenesis.
type GenesisMember struct {
	Name       string         `json:"name"`
	PubKey     ed25519.PubKey `json:"pub_key"`
	Reputation uint64         `json:"reputation"`
	Stake      uint64         `json:"stake"`
	Balance    uint64         `json:"balance"`
}

func (gm *GenesisMember) Address() string {
	return gm.PubKey.Address().String()
}

// GenesisDoc defines the initial conditions of a DAO instance: its chain id,
// starting height and founding member set.
type GenesisDoc struct {
	GenesisTime   time.Time       `json:"genesis_time"`
	ChainID       string          `json:"chain_id"`
	InitialHeight int64           `json:"initial_height"`
	Members       []GenesisMember `json:"members"`
	AppState      json.RawMessage `json:"app_state,omitempty"`
}

// SaveAs is a utility method for saving the GenesisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := json.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func LoadGenesisDoc(file string) (*GenesisDoc, error) {
	dat, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	genDoc := new(GenesisDoc)
	if err := json.Unmarshal(dat, genDoc); err != nil {
		return nil, err
	}
	if err := genDoc.ValidateAndComplete(); err != nil {
		return nil, err
	}
	return genDoc, nil
}

func (genDoc *GenesisDoc) ValidateAndComplete() error {
	if genDoc.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if genDoc.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", genDoc.InitialHeight)
	}

	if genDoc.InitialHeight == 0 {
		genDoc.InitialHeight = 1
	}

	seen := make(map[string]bool, len(genDoc.Members))
	for i, m := range genDoc.Members {
		if len(m.PubKey) != ed25519.PubKeySize {
			return fmt.Errorf("genesis member %d has invalid pubkey length %d", i, len(m.PubKey))
		}
		addr := m.Address()
		if seen[addr] {
			return fmt.Errorf("duplicate genesis member %s", addr)
		}
		seen[addr] = true
		if m.Stake > m.Balance {
			return fmt.Errorf("genesis member %s stakes %d with balance %d", addr, m.Stake, m.Balance)
		}
	}

	if genDoc.GenesisTime.IsZero() {
		genDoc.GenesisTime = time.Now().Round(0).UTC()
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

const DAOModuleName = "dao"
const DefaultReputation = 1
