package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestTermswapPayFlattens(t *testing.T) {
	pair := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	evt := TermswapPay{
		Pair:          pair,
		Maturity:      31_536_000,
		Owner:         common.HexToAddress("0x01"),
		IDs:           []uint64{0, 2},
		AssetIn:       uint256.NewInt(1001),
		CollateralOut: nil,
		FullyPaidIDs:  []uint64{2},
	}
	rec := evt.Event()
	if rec.Type != TypeTermswapPay || evt.EventType() != TypeTermswapPay {
		t.Fatalf("unexpected type %q", rec.Type)
	}
	want := map[string]string{
		"pair":          pair.Hex(),
		"maturity":      "31536000",
		"collateralTo":  "",
		"ids":           "0,2",
		"assetIn":       "1001",
		"collateralOut": "0",
		"fullyPaidIds":  "2",
	}
	for key, value := range want {
		if got := rec.Attributes[key]; got != value {
			t.Fatalf("attribute %s: got %q want %q", key, got, value)
		}
	}
}

func TestEmitterFunc(t *testing.T) {
	var seen []string
	emitter := EmitterFunc(func(evt Event) { seen = append(seen, evt.EventType()) })
	emitter.Emit(TermswapOwnerChanged{})
	emitter.Emit(TermswapFeeCollected{Kind: " staking "})
	if len(seen) != 2 || seen[0] != TypeTermswapOwnerChanged || seen[1] != TypeTermswapFeeCollected {
		t.Fatalf("unexpected events %v", seen)
	}
	EmitterFunc(nil).Emit(TermswapOwnerChanged{})

	rec := TermswapFeeCollected{Kind: " staking "}.Event()
	if rec.Attributes["kind"] != "staking" || rec.Attributes["amount"] != "0" {
		t.Fatalf("unexpected attributes %v", rec.Attributes)
	}
}
