package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nathaniel-cmd/bitcoin-dao/crypto"
	"github.com/nathaniel-cmd/bitcoin-dao/tx"
	"github.com/nathaniel-cmd/bitcoin-dao/types"

	"github.com/spf13/cobra"
)

type txArguments struct {
	Url      string
	ChainID  string
	KeyPath  string
	Key      string
	Nonce    uint64
	NoSend   bool
	Amount   uint64
	Proposal uint64
	Approve  bool
	Title    string
	Desc     string
	Partner  string
}

var txArgs txArguments

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Build, sign and submit governance transactions",
}

func init() {
	for _, c := range []*cobra.Command{joinCmd, leaveCmd, stakeCmd, unstakeCmd, proposeCmd, voteCmd, executeCmd} {
		c.Flags().StringVarP(&txArgs.Url, "url", "u", "http://127.0.0.1:8547", "daod service url")
		c.Flags().StringVar(&txArgs.ChainID, "chain-id", "bitcoin-dao", "chain id the signature binds to")
		c.Flags().StringVarP(&txArgs.KeyPath, "skeyPath", "s", "./config/member_keys.json", "member keyring path")
		c.Flags().StringVarP(&txArgs.Key, "key", "k", "", "member key name or address, defaults to the first entry")
		c.Flags().Uint64VarP(&txArgs.Nonce, "nonce", "n", 0, "sender nonce, queried from the node when zero")
		c.Flags().BoolVar(&txArgs.NoSend, "nosend", false, "print the signed envelope instead of submitting")
		txCmd.AddCommand(c)
	}
	stakeCmd.Flags().Uint64VarP(&txArgs.Amount, "amount", "a", 0, "amount to stake")
	unstakeCmd.Flags().Uint64VarP(&txArgs.Amount, "amount", "a", 0, "amount to unstake")
	proposeCmd.Flags().Uint64VarP(&txArgs.Amount, "amount", "a", 0, "treasury payout requested")
	proposeCmd.Flags().StringVarP(&txArgs.Title, "title", "t", "", "proposal title")
	proposeCmd.Flags().StringVar(&txArgs.Desc, "desc", "", "proposal description")
	proposeCmd.Flags().StringVar(&txArgs.Partner, "partner", "", "partner organization, optional")
	voteCmd.Flags().Uint64VarP(&txArgs.Proposal, "proposal", "p", 0, "proposal index")
	voteCmd.Flags().BoolVar(&txArgs.Approve, "approve", true, "vote yes (true) or no (false)")
	executeCmd.Flags().Uint64VarP(&txArgs.Proposal, "proposal", "p", 0, "proposal index")
}

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Register the key's address as a member",
	Run: func(cmd *cobra.Command, args []string) {
		signer := crypto.LoadSigner(txArgs.KeyPath, txArgs.Key)
		submitTx(signer, tx.DAOTxTypeJoin, &tx.JoinTx{PubKey: signer.PublicKey()})
	},
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Remove the key's address from the member registry",
	Run: func(cmd *cobra.Command, args []string) {
		signer := crypto.LoadSigner(txArgs.KeyPath, txArgs.Key)
		submitTx(signer, tx.DAOTxTypeLeave, &tx.LeaveTx{})
	},
}

var stakeCmd = &cobra.Command{
	Use:   "stake",
	Short: "Stake funds into treasury custody",
	Run: func(cmd *cobra.Command, args []string) {
		signer := crypto.LoadSigner(txArgs.KeyPath, txArgs.Key)
		submitTx(signer, tx.DAOTxTypeStake, &tx.StakeTx{Amount: txArgs.Amount})
	},
}

var unstakeCmd = &cobra.Command{
	Use:   "unstake",
	Short: "Withdraw staked funds from treasury custody",
	Run: func(cmd *cobra.Command, args []string) {
		signer := crypto.LoadSigner(txArgs.KeyPath, txArgs.Key)
		submitTx(signer, tx.DAOTxTypeUnstake, &tx.UnstakeTx{Amount: txArgs.Amount})
	},
}

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Create a treasury spending proposal",
	Run: func(cmd *cobra.Command, args []string) {
		signer := crypto.LoadSigner(txArgs.KeyPath, txArgs.Key)
		submitTx(signer, tx.DAOTxTypeProposal, &tx.ProposalTx{
			Title:       txArgs.Title,
			Description: txArgs.Desc,
			Amount:      txArgs.Amount,
			PartnerOrg:  txArgs.Partner,
		})
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote on an active proposal",
	Run: func(cmd *cobra.Command, args []string) {
		signer := crypto.LoadSigner(txArgs.KeyPath, txArgs.Key)
		submitTx(signer, tx.DAOTxTypeVote, &tx.VoteTx{Proposal: txArgs.Proposal, Approve: txArgs.Approve})
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Resolve a proposal whose voting window has closed",
	Run: func(cmd *cobra.Command, args []string) {
		signer := crypto.LoadSigner(txArgs.KeyPath, txArgs.Key)
		submitTx(signer, tx.DAOTxTypeExecute, &tx.ExecuteTx{Proposal: txArgs.Proposal})
	},
}

func queryNonce(url, addr string) (uint64, error) {
	resp, err := http.Get(fmt.Sprintf("%s/members/%s", url, addr))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("query member: %s", string(body))
	}
	var info struct {
		Member *types.Member `json:"member"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return 0, err
	}
	if info.Member == nil {
		return 0, nil
	}
	return info.Member.Nonce, nil
}

func submitTx(signer *crypto.Signer, tp tx.DAOTxType, payload any) {
	nonce := txArgs.Nonce
	if nonce == 0 && tp != tx.DAOTxTypeJoin {
		n, err := queryNonce(txArgs.Url, signer.Address())
		if err != nil {
			fmt.Printf("query nonce err:%v\n", err)
			return
		}
		nonce = n
	}
	btx := &tx.DAOTx{
		Version: tx.DAOTxVersion0,
		Type:    tp,
		Nonce:   nonce,
		Sender:  signer.Address(),
		Tx:      payload,
	}
	dat, err := btx.SigData([]byte(txArgs.ChainID))
	if err != nil {
		fmt.Printf("tx sign data err:%v\n", err)
		return
	}
	sig, err := signer.Sign(dat)
	if err != nil {
		fmt.Printf("sign tx err:%v\n", err)
		return
	}
	btx.Sig = [][]byte{sig}
	raw, err := tx.MarshalDAOTx(btx)
	if err != nil {
		fmt.Printf("marshal tx err:%v\n", err)
		return
	}
	if txArgs.NoSend {
		fmt.Println(string(raw))
		return
	}
	resp, err := http.Post(txArgs.Url+"/txs", "application/json", bytes.NewReader(raw))
	if err != nil {
		fmt.Printf("submit tx err:%v\n", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	fmt.Println(string(body))
}
