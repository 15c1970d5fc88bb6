package observability

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"termswap/core/events"
)

func TestModuleMetricsObserve(t *testing.T) {
	m := ModuleMetrics()
	before := testutil.ToFloat64(m.RequestsVec().WithLabelValues("pairs", "metrics_test", "error"))
	m.Observe("pairs", "metrics_test", http.StatusConflict, time.Millisecond)
	m.Observe("pairs", "metrics_test", http.StatusOK, time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(m.RequestsVec().WithLabelValues("pairs", "metrics_test", "error")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.RequestsVec().WithLabelValues("pairs", "metrics_test", "success")))

	m.RecordThrottle("pairs", "")
	require.Equal(t, float64(1), testutil.ToFloat64(m.ThrottlesVec().WithLabelValues("pairs", "unspecified")))
}

func TestTermswapMetrics(t *testing.T) {
	m := Termswap()
	m.RecordOperation("lend", "")
	m.RecordOperation("lend", "invariant_violation")
	require.Equal(t, float64(1), testutil.ToFloat64(m.OperationsVec().WithLabelValues("lend", "success")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.OperationsVec().WithLabelValues("lend", "invariant_violation")))

	m.SetReserves("0xpair", 99, 1.5, 2)
	require.Equal(t, 1.5, testutil.ToFloat64(m.ReservesVec().WithLabelValues("0xpair", "99", "asset")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.ReservesVec().WithLabelValues("0xpair", "99", "collateral")))

	var nilMetrics *TermswapMetrics
	nilMetrics.RecordOperation("mint", "")
	nilMetrics.SetPools(3)
}

func TestEventSinkCountsLogsAndKeepsBacklog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	forwarded := 0
	sink := NewEventSink(logger, Termswap(), events.EmitterFunc(func(events.Event) { forwarded++ }), 2)

	pair := common.HexToAddress("0x01")
	before := testutil.ToFloat64(Termswap().EventsVec().WithLabelValues(events.TypeTermswapFeeCollected))
	for i := uint64(1); i <= 3; i++ {
		sink.Emit(events.TermswapFeeCollected{Pair: pair, Kind: "protocol", To: pair, Amount: uint256.NewInt(i)})
	}

	require.Equal(t, 3, forwarded)
	require.Equal(t, before+3, testutil.ToFloat64(Termswap().EventsVec().WithLabelValues(events.TypeTermswapFeeCollected)))
	recent := sink.Recent(0)
	require.Len(t, recent, 2)
	require.Equal(t, "2", recent[0].Attributes["amount"])
	require.Equal(t, "3", recent[1].Attributes["amount"])
	require.Len(t, sink.Recent(1), 1)
	recent[0].Attributes["amount"] = "tampered"
	require.Equal(t, "2", sink.Recent(0)[0].Attributes["amount"])
	require.Contains(t, buf.String(), events.TypeTermswapFeeCollected)
}

func TestEventSinkSubscribers(t *testing.T) {
	sink := NewEventSink(nil, Termswap(), nil, 4)
	pair := common.HexToAddress("0x02")
	sink.Emit(events.TermswapFeeCollected{Pair: pair, Kind: "staking", To: pair, Amount: uint256.NewInt(1)})

	updates, cancel, backlog := sink.Subscribe(1)
	require.Len(t, backlog, 1)
	require.Equal(t, "1", backlog[0].Attributes["amount"])

	sink.Emit(events.TermswapFeeCollected{Pair: pair, Kind: "staking", To: pair, Amount: uint256.NewInt(2)})
	evt := <-updates
	require.Equal(t, "2", evt.Attributes["amount"])

	cancel()
	cancel()
	_, open := <-updates
	require.False(t, open)

	// A full subscriber is dropped instead of blocking the emitter.
	slow, cancelSlow, _ := sink.Subscribe(1)
	defer cancelSlow()
	sink.Emit(events.TermswapFeeCollected{Pair: pair, Kind: "staking", To: pair, Amount: uint256.NewInt(3)})
	sink.Emit(events.TermswapFeeCollected{Pair: pair, Kind: "staking", To: pair, Amount: uint256.NewInt(4)})
	evt, open = <-slow
	require.True(t, open)
	require.Equal(t, "3", evt.Attributes["amount"])
	_, open = <-slow
	require.False(t, open)
	require.Len(t, sink.Recent(0), 4)
}
