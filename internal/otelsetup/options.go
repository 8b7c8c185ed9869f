package otelsetup

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

type Options struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
	Stdout      bool
	TLS         struct {
		CAFile   string
		CertFile string
		KeyFile  string
	}
}

func DefaultOptions(serviceName string) Options {
	return Options{
		ServiceName: serviceName,
	}
}

func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Endpoint, "otel-endpoint", o.Endpoint, "OTLP gRPC endpoint for traces, metrics and logs.")
	fs.BoolVar(&o.Insecure, "otel-insecure", o.Insecure, "Disable TLS for the OTLP exporter.")
	fs.BoolVar(&o.Stdout, "otel-stdout", o.Stdout, "Additionally export telemetry to stdout.")
	fs.StringVar(&o.TLS.CAFile, "otel-tls-ca", o.TLS.CAFile, "Path to the CA certificate for the OTLP endpoint.")
	fs.StringVar(&o.TLS.CertFile, "otel-tls-cert", o.TLS.CertFile, "Path to the client certificate for the OTLP endpoint.")
	fs.StringVar(&o.TLS.KeyFile, "otel-tls-key", o.TLS.KeyFile, "Path to the client key for the OTLP endpoint.")
}

func (o *Options) getTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	if o.TLS.CAFile != "" {
		ca, err := os.ReadFile(o.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(ca) {
			return nil, fmt.Errorf("no certificates found in %q", o.TLS.CAFile)
		}

		tlsConfig.RootCAs = pool
	}

	if o.TLS.CertFile != "" && o.TLS.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(o.TLS.CertFile, o.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client keypair: %w", err)
		}

		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}
