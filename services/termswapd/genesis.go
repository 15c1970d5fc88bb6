package main

import (
	"errors"
	"fmt"
	"log/slog"

	"termswap/config"
	"termswap/native/bank"
	"termswap/native/termswap"
	"termswap/storage"
)

var genesisMarker = []byte("termswapd/genesis-applied")

// applyGenesis creates the genesis pairs and credits the genesis balances once
// per store. Later boots only create pairs that are still missing.
func applyGenesis(db storage.Database, ledger *bank.Ledger, factory *termswap.Factory, genesis *config.Genesis, logger *slog.Logger) error {
	if genesis == nil {
		return nil
	}
	pairs, err := genesis.PairTokens()
	if err != nil {
		return err
	}
	for _, tokens := range pairs {
		if _, err := factory.Pair(tokens[0], tokens[1]); err == nil {
			continue
		} else if !errors.Is(err, termswap.ErrPairNotFound) {
			return err
		}
		pair, err := factory.CreatePair(tokens[0], tokens[1])
		if err != nil {
			return fmt.Errorf("create genesis pair %s/%s: %w", tokens[0].Hex(), tokens[1].Hex(), err)
		}
		logger.Info("genesis pair created", slog.String("pair", pair.Address().Hex()))
	}

	if _, err := db.Get(genesisMarker); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	credits, err := genesis.Credits()
	if err != nil {
		return err
	}
	for _, credit := range credits {
		if err := ledger.Credit(credit.Token, credit.Account, credit.Amount); err != nil {
			return fmt.Errorf("credit %s: %w", credit.Account.Hex(), err)
		}
	}
	if len(credits) > 0 {
		logger.Info("genesis balances credited", slog.Int("count", len(credits)))
	}
	return db.Put(genesisMarker, []byte{1})
}
