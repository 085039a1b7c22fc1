package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	app_config "github.com/nathaniel-cmd/bitcoin-dao/config"
	"github.com/nathaniel-cmd/bitcoin-dao/crypto"
	"github.com/nathaniel-cmd/bitcoin-dao/types"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/spf13/cobra"
)

const (
	flagOverwrite = "overwrite"
	flagChainID   = "chain-id"
	flagHome      = "home"
	flagMembers   = "members"
	flagBalance   = "balance"
)

type printInfo struct {
	ChainID    string          `json:"chain_id"`
	GenFile    string          `json:"genesis_file"`
	Members    int             `json:"members"`
	AppMessage json.RawMessage `json:"app_message,omitempty"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)
	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize genesis and application configuration files",
	Long: `Write a default config.toml plus a genesis.json with freshly
generated ed25519 member keys. Each generated key is saved next to the
genesis file so the members can sign transactions.`,
	Args: cobra.ExactArgs(0),
	RunE: initRun,
}

func init() {
	initCmd.Flags().BoolP(flagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(flagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().String(flagHome, "", "home directory")
	initCmd.Flags().Int(flagMembers, 1, "number of founding members to generate")
	initCmd.Flags().Uint64(flagBalance, 1000, "bank balance per founding member")
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(flagHome)
	chainID, _ := cmd.Flags().GetString(flagChainID)
	overwrite, _ := cmd.Flags().GetBool(flagOverwrite)
	memberCnt, _ := cmd.Flags().GetInt(flagMembers)
	balance, _ := cmd.Flags().GetUint64(flagBalance)

	if chainID == "" {
		chainID = fmt.Sprintf("dao-chain-%v", rand.Uint64())
	}

	appConfig := app_config.DefaultConfig(home)
	genFile := appConfig.GenesisFile()
	if !overwrite {
		if _, err := os.Stat(genFile); err == nil {
			return fmt.Errorf("genesis file %s exists, use -o to overwrite", genFile)
		}
	}

	members := make([]types.GenesisMember, 0, memberCnt)
	keys := make([]crypto.MemberKey, 0, memberCnt)
	for i := 0; i < memberCnt; i++ {
		priv := ed25519.GenPrivKey()
		pub := priv.PubKey().(ed25519.PubKey)
		name := fmt.Sprintf("founder-%d", i)
		members = append(members, types.GenesisMember{
			Name:    name,
			PubKey:  pub,
			Balance: balance,
		})
		keys = append(keys, crypto.MemberKey{
			Name:    name,
			Address: pub.Address().String(),
			PubKey:  pub,
			PrivKey: priv,
		})
	}

	genDoc := &types.GenesisDoc{
		GenesisTime:   time.Now(),
		ChainID:       chainID,
		InitialHeight: 1,
		Members:       members,
	}
	if err := types.ExportGenesisFile(genDoc, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file %v", err)
	}

	keyBytes, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}
	keyFile := filepath.Join(appConfig.RootDir, "config", "member_keys.json")
	if err := os.WriteFile(keyFile, keyBytes, 0o600); err != nil {
		return err
	}

	app_config.WriteConfigFile(filepath.Join(appConfig.RootDir, "config", "config.toml"), appConfig)
	return displayInfo(printInfo{ChainID: chainID, GenFile: genFile, Members: memberCnt})
}
