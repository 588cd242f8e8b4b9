package webserver

import (
	"context"
	"crypto/tls"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/stake-plus/crisistruth/src/logging"
)

// TLSReloader serves a certificate pair and reloads it when either file
// changes on disk.
type TLSReloader struct {
	certFile, keyFile string
	interval          time.Duration
	log               *log.Logger

	mu          sync.RWMutex
	cert        *tls.Certificate
	lastModCert time.Time
	lastModKey  time.Time
}

func NewTLSReloader(ctx context.Context, certFile, keyFile string) (*TLSReloader, error) {
	r := &TLSReloader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: 5 * time.Minute,
		log:      logging.Component("tls"),
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	go r.watch(ctx)
	return r, nil
}

func (r *TLSReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cert = &cert
	if fi, err := os.Stat(r.certFile); err == nil {
		r.lastModCert = fi.ModTime()
	}
	if fi, err := os.Stat(r.keyFile); err == nil {
		r.lastModKey = fi.ModTime()
	}
	r.log.Info("certificates loaded", "cert", r.certFile)
	return nil
}

// changed reports whether either file is newer than the loaded pair.
func (r *TLSReloader) changed() (bool, error) {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false, err
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return certInfo.ModTime().After(r.lastModCert) || keyInfo.ModTime().After(r.lastModKey), nil
}

func (r *TLSReloader) watch(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		changed, err := r.changed()
		if err != nil {
			r.log.Warn("stat certificate files", "err", err)
			continue
		}
		if changed {
			if err := r.reload(); err != nil {
				r.log.Error("reload certificates", "err", err)
			}
		}
	}
}

func (r *TLSReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

func (r *TLSReloader) Config() *tls.Config {
	return &tls.Config{
		GetCertificate: r.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}
