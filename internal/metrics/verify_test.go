package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistration(t *testing.T) {
	if HandshakesInitiated == nil {
		t.Error("HandshakesInitiated metric is nil")
	}
	if HandshakesCompleted == nil {
		t.Error("HandshakesCompleted metric is nil")
	}
	if HandshakesFailed == nil {
		t.Error("HandshakesFailed metric is nil")
	}
	if HandshakeDuration == nil {
		t.Error("HandshakeDuration metric is nil")
	}

	if ChannelsEstablished == nil {
		t.Error("ChannelsEstablished metric is nil")
	}
	if ChannelsActive == nil {
		t.Error("ChannelsActive metric is nil")
	}
	if ChannelsAborted == nil {
		t.Error("ChannelsAborted metric is nil")
	}
	if ChannelStepDuration == nil {
		t.Error("ChannelStepDuration metric is nil")
	}

	if VaultOperations == nil {
		t.Error("VaultOperations metric is nil")
	}
	if VaultErrors == nil {
		t.Error("VaultErrors metric is nil")
	}
	if VaultHandlesLive == nil {
		t.Error("VaultHandlesLive metric is nil")
	}

	if FramesSent == nil {
		t.Error("FramesSent metric is nil")
	}
	if FramesReceived == nil {
		t.Error("FramesReceived metric is nil")
	}
	if FramesRejected == nil {
		t.Error("FramesRejected metric is nil")
	}
}

func TestMetricsIncrement(t *testing.T) {
	HandshakesInitiated.WithLabelValues("initiator").Inc()
	HandshakesCompleted.WithLabelValues("initiator", "XX_25519_AESGCM_SHA256").Inc()
	HandshakesFailed.WithLabelValues("responder", "verification_failed").Inc()
	HandshakeDuration.WithLabelValues("initiator").Observe(0.05)

	ChannelsEstablished.WithLabelValues("initiator", "ready").Inc()
	ChannelsActive.Inc()
	ChannelsAborted.WithLabelValues("encode_msg1").Inc()
	ChannelStepDuration.WithLabelValues("encode_msg1").Observe(0.001)

	VaultOperations.WithLabelValues("sign", "ed25519").Inc()
	VaultErrors.WithLabelValues("dh").Inc()

	FramesSent.Inc()
	FramesReceived.Inc()
	FramesRejected.WithLabelValues("verification_failed").Inc()
	FrameSize.Observe(1024)

	if count := testutil.CollectAndCount(HandshakesInitiated); count == 0 {
		t.Error("HandshakesInitiated has no metrics collected")
	}
	if count := testutil.CollectAndCount(ChannelsEstablished); count == 0 {
		t.Error("ChannelsEstablished has no metrics collected")
	}
	if count := testutil.CollectAndCount(VaultOperations); count == 0 {
		t.Error("VaultOperations has no metrics collected")
	}
	if count := testutil.CollectAndCount(FramesSent); count == 0 {
		t.Error("FramesSent has no metrics collected")
	}
}
