package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackmgr/internal/certs"
	"stackmgr/internal/config"
)

var certsFlags runFlags

var (
	certSANs   []string
	certCN     string
	certOutDir string
	certCACert string
	certCAKey  string
)

// certsCmd groups the certificate helper commands.
var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Generate certificates for the platform services",
}

var generateTestCertCmd = &cobra.Command{
	Use:   "generate-test-cert",
	Short: "Generate a self-signed certificate for testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(certSANs) == 0 {
			return fmt.Errorf("at least one --san is required")
		}
		certPath := certOutDir + "/test_cert.pem"
		keyPath := certOutDir + "/test_key.pem"
		if err := certs.Generate(certSANs, certCN, certPath, keyPath, certCACert, certCAKey); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Certificate written to %s\nKey written to %s\n", certPath, keyPath)
		return nil
	},
}

// createInternalCertsCmd generates the CA and the certificate the services
// use to talk to each other, keyed to the private IP.
var createInternalCertsCmd = &cobra.Command{
	Use:   "create-internal-certs",
	Short: "Generate the CA and certificates for service-to-service traffic",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := prepare(&certsFlags, true, false)
		if err != nil {
			return err
		}
		privateIP := r.store.GetString(config.SectionManager + "." + config.KeyPrivateIP)
		if privateIP == "" {
			return config.NewConfigurationError("manager.%s must be set to create internal certificates", config.KeyPrivateIP)
		}

		caCert := certOutDir + "/ca_cert.pem"
		caKey := certOutDir + "/ca_key.pem"
		if err := certs.GenerateCA("stackmgr-internal-ca", caCert, caKey); err != nil {
			return err
		}
		certPath := certOutDir + "/internal_cert.pem"
		keyPath := certOutDir + "/internal_key.pem"
		if err := certs.Generate([]string{privateIP, "localhost", "127.0.0.1"},
			privateIP, certPath, keyPath, caCert, caKey); err != nil {
			return err
		}

		r.store.Set(config.SectionSSLInputs+".ca_cert_path", caCert)
		r.store.Set(config.SectionSSLInputs+".ca_key_path", caKey)
		r.store.Set(config.SectionSSLInputs+".internal_cert_path", certPath)
		r.store.Set(config.SectionSSLInputs+".internal_key_path", keyPath)
		r.store.Set(config.SectionSSLInputs+".internal_ca_path", caCert)
		if err := r.store.Dump(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Internal certificates written to %s\n", certOutDir)
		return nil
	},
}

// createExternalCertsCmd generates the certificate the web UI presents,
// keyed to the public address.
var createExternalCertsCmd = &cobra.Command{
	Use:   "create-external-certs",
	Short: "Generate the certificate presented on the public interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := prepare(&certsFlags, true, false)
		if err != nil {
			return err
		}
		publicIP := r.store.GetString(config.SectionManager + "." + config.KeyPublicIP)
		if publicIP == "" {
			return config.NewConfigurationError("manager.%s must be set to create external certificates", config.KeyPublicIP)
		}

		certPath := certOutDir + "/external_cert.pem"
		keyPath := certOutDir + "/external_key.pem"
		caCert := r.store.GetString(config.SectionSSLInputs + ".ca_cert_path")
		caKey := r.store.GetString(config.SectionSSLInputs + ".ca_key_path")
		if err := certs.Generate([]string{publicIP}, publicIP, certPath, keyPath, caCert, caKey); err != nil {
			return err
		}

		r.store.Set(config.SectionSSLInputs+".external_cert_path", certPath)
		r.store.Set(config.SectionSSLInputs+".external_key_path", keyPath)
		if caCert != "" {
			r.store.Set(config.SectionSSLInputs+".external_ca_path", caCert)
		}
		if err := r.store.Dump(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "External certificates written to %s\n", certOutDir)
		return nil
	},
}

func init() {
	certsCmd.PersistentFlags().StringVar(&certOutDir, "out-dir", "/etc/stackmgr/ssl",
		"Directory the certificates are written to")
	generateTestCertCmd.Flags().StringSliceVar(&certSANs, "san", nil,
		"Subject alternative name (IP or DNS), repeatable")
	generateTestCertCmd.Flags().StringVar(&certCN, "cn", "stackmgr-test", "Certificate common name")
	generateTestCertCmd.Flags().StringVar(&certCACert, "ca-cert", "", "CA certificate to sign with")
	generateTestCertCmd.Flags().StringVar(&certCAKey, "ca-key", "", "CA key to sign with")
	addConfigFlag(createInternalCertsCmd, &certsFlags)
	addConfigFlag(createExternalCertsCmd, &certsFlags)

	certsCmd.AddCommand(generateTestCertCmd)
	certsCmd.AddCommand(createInternalCertsCmd)
	certsCmd.AddCommand(createExternalCertsCmd)
	rootCmd.AddCommand(certsCmd)
}
