package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"termswap/config"
	"termswap/native/bank"
	"termswap/native/termswap"
	"termswap/storage"
)

func TestApplyGenesisIsIdempotent(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	ledger := bank.NewLedger(db)
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	factory, err := termswap.NewFactory(db, ledger, owner, config.DefaultFees)
	require.NoError(t, err)

	asset := "0x0000000000000000000000000000000000001111"
	collateral := "0x0000000000000000000000000000000000002222"
	account := "0x00000000000000000000000000000000000000a1"
	genesis := &config.Genesis{
		Owner: owner.Hex(),
		Pairs: []config.GenesisPair{{Asset: asset, Collateral: collateral}},
		Balances: []config.GenesisBalance{
			{Account: account, Token: asset, Amount: "1000"},
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, applyGenesis(db, ledger, factory, genesis, logger))
	require.NoError(t, applyGenesis(db, ledger, factory, genesis, logger))

	require.Len(t, factory.Pairs(), 1)
	balance, err := ledger.Balance(common.HexToAddress(asset), common.HexToAddress(account))
	require.NoError(t, err)
	require.Equal(t, "1000", balance.Dec())

	require.NoError(t, applyGenesis(db, ledger, factory, nil, logger))
}
