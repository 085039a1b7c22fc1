package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nathaniel-cmd/bitcoin-dao/app"
	"github.com/nathaniel-cmd/bitcoin-dao/bank"
	app_config "github.com/nathaniel-cmd/bitcoin-dao/config"
	"github.com/nathaniel-cmd/bitcoin-dao/types"

	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var homeDir string

var rootCmd = &cobra.Command{
	Use:   "daod",
	Short: "daod runs a governance and treasury DAO",
	Long: `A membership, staking and proposal engine over a single
shared treasury, persisted in a versioned merkle tree.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func run(cmd *cobra.Command, args []string) {
	if homeDir == "" {
		homeDir = os.ExpandEnv("$HOME/.dao")
	}

	appConfig := app_config.DefaultConfig(homeDir)
	viper.SetConfigFile(fmt.Sprintf("%s/%s", homeDir, "config/config.toml"))
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Reading config: %v", err)
	}
	if err := viper.Unmarshal(appConfig); err != nil {
		log.Fatalf("Decoding config: %v", err)
	}
	appConfig.RootDir = homeDir
	appConfig.App.Home = homeDir

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err := cmtflags.ParseLogLevel(appConfig.App.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	genDoc, err := types.LoadGenesisDoc(appConfig.GenesisFile())
	if err != nil {
		log.Fatalf("load genesis doc: %v", err)
	}
	if appConfig.App.ChainID == "" {
		appConfig.App.ChainID = genDoc.ChainID
	}

	ledger := bank.NewLedger(logger)

	daoApp, err := app.NewDAOApp(appConfig.App, ledger, logger)
	if err != nil {
		log.Fatalf("new App err:%v", err)
	}
	seedLedger(daoApp, ledger, genDoc)
	if err := daoApp.InitChain(genDoc); err != nil {
		log.Fatalf("init chain err:%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go daoApp.Run(ctx)

	service := app.NewQueryService(appConfig.App.ListenAddr, daoApp, logger)
	go service.Start()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Println("shut down...")
	cancel()
	daoApp.Stop()
}

// seedLedger funds the in-memory bank from genesis. The ledger does not
// survive restarts, so on a non-fresh db the committed treasury is restored
// to custody and members get their genesis balance net of the staked part.
func seedLedger(daoApp *app.DAOApp, ledger *bank.Ledger, genDoc *types.GenesisDoc) {
	fresh := daoApp.DB().Header().Hash == nil
	if fresh {
		for _, gm := range genDoc.Members {
			ledger.Fund(gm.Address(), gm.Balance)
		}
		return
	}
	treasury, _ := daoApp.DB().TreasuryBalance()
	ledger.Fund(bank.CustodyAccount, treasury)
	for _, gm := range genDoc.Members {
		ledger.Fund(gm.Address(), gm.Balance-gm.Stake)
	}
}
