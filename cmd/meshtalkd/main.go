// Command meshtalkd runs one MeshTalk mesh relay node: it wires together
// the crypto envelope, voice pipeline, peer table, and relay engine, then
// blocks until an interrupt or terminate signal asks it to shut down.
package main

import (
	"encoding/base64"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/OffgridOps/MeshTalk/config"
	"github.com/OffgridOps/MeshTalk/crypto"
	"github.com/OffgridOps/MeshTalk/message"
	"github.com/OffgridOps/MeshTalk/peer"
	"github.com/OffgridOps/MeshTalk/relay"
	"github.com/OffgridOps/MeshTalk/voice"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry := logrus.NewEntry(log)

	cfg, err := config.Load()
	if err != nil {
		entry.WithError(err).Fatal("invalid configuration")
	}

	backendName := crypto.BackendName(cfg.CryptoBackend)
	backend, err := crypto.NewBackend(backendName)
	if err != nil {
		// Per spec.md §7, an unavailable crypto backend at startup is
		// fatal: there is no degraded mode to fall into silently.
		entry.WithError(err).Fatal("crypto backend unavailable")
	}
	keyPair, err := backend.GenerateKeyPair()
	if err != nil {
		entry.WithError(err).Fatal("failed to generate identity keypair")
	}
	envelope := crypto.NewEnvelope(backend)

	nodeID := uuid.NewString()
	entry = entry.WithField("node_id", nodeID)
	entry.WithFields(logrus.Fields{
		"crypto_backend": backend.Name(),
		"post_quantum":   backend.PostQuantum(),
		"bind":           cfg.BindHost,
		"port":           cfg.Port,
	}).Info("starting meshtalkd")

	peers := peer.NewTable(nodeID)
	voiceProcessor := voice.NewProcessorWithThreshold(cfg.VADThreshold)

	deliver := func(senderID string, kind message.Kind, payload string) {
		switch kind {
		case message.KindText:
			entry.WithFields(logrus.Fields{"from": senderID}).Infof("text: %s", payload)
		case message.KindVoice:
			audio, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				entry.WithError(err).Warn("malformed voice payload")
				return
			}
			_, isSpeech := voiceProcessor.ProcessAudio(audio)
			entry.WithFields(logrus.Fields{"from": senderID, "is_speech": isSpeech}).Info("voice frame received")
		}
	}

	r := relay.New(nodeID, cfg, envelope, keyPair, peers, deliver, entry)
	if err := r.Start(); err != nil {
		entry.WithError(err).Fatal("failed to start relay")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	entry.Info("shutting down")
	r.Stop()
}
