package services

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/pkcs12"

	"gamerstore-backend/config"
)

// PixCharge is the result of creating an immediate PIX charge
type PixCharge struct {
	TxID          string `json:"txid"`
	CopyPasteCode string `json:"pixCopiaECola"`
	QRCodeImage   string `json:"imagemQrcode"`
}

// PixGateway creates PIX charges with the payment provider
type PixGateway interface {
	CreateCharge(amount float64, expirationSeconds int) (*PixCharge, error)
}

// EfiService talks to the Efí PIX API
type EfiService struct {
	config  *config.Config
	client  *http.Client
	baseURL string

	// Access token cached until shortly before its expiry
	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// efiBaseURL returns the Efí API base URL for the configured environment
func efiBaseURL(cfg *config.Config) string {
	if cfg.EfiSandbox {
		return "https://pix-h.api.efipay.com.br"
	}
	return "https://pix.api.efipay.com.br"
}

// NewEfiService creates a new Efí PIX service. The Efí PIX endpoints require
// mutual TLS with the account certificate, loaded from a .p12 file path or
// from a base64-encoded copy of it.
func NewEfiService(cfg *config.Config) (*EfiService, error) {
	cert, err := loadEfiCertificate(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load Efí certificate: %w", err)
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
	}

	return &EfiService{
		config:  cfg,
		client:  &http.Client{Timeout: 30 * time.Second, Transport: transport},
		baseURL: efiBaseURL(cfg),
	}, nil
}

func loadEfiCertificate(cfg *config.Config) (tls.Certificate, error) {
	var p12Data []byte
	var err error

	switch {
	case cfg.EfiCertBase64 != "":
		p12Data, err = base64.StdEncoding.DecodeString(cfg.EfiCertBase64)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to decode base64 certificate: %w", err)
		}
	case cfg.EfiCertPath != "":
		p12Data, err = os.ReadFile(cfg.EfiCertPath)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to read certificate file: %w", err)
		}
	default:
		return tls.Certificate{}, fmt.Errorf("no certificate configured (EFI_CERT_PATH or EFI_CERT_BASE64)")
	}

	// Efí ships .p12 bundles with an empty password
	blocks, err := pkcs12.ToPEM(p12Data, "")
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to parse p12 bundle: %w", err)
	}

	var pemData []byte
	for _, b := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(b)...)
	}

	cert, err := tls.X509KeyPair(pemData, pemData)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to build key pair: %w", err)
	}
	return cert, nil
}

// EfiTokenResponse represents an Efí OAuth access token response
type EfiTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// EfiChargeRequest represents an immediate charge creation request
type EfiChargeRequest struct {
	Calendario struct {
		Expiracao int `json:"expiracao"`
	} `json:"calendario"`
	Valor struct {
		Original string `json:"original"`
	} `json:"valor"`
	Chave              string `json:"chave"`
	SolicitacaoPagador string `json:"solicitacaoPagador"`
}

// EfiChargeResponse represents an immediate charge creation response
type EfiChargeResponse struct {
	TxID string `json:"txid"`
	Loc  struct {
		ID int `json:"id"`
	} `json:"loc"`
}

// EfiQRCodeResponse represents a QR code generation response
type EfiQRCodeResponse struct {
	QRCode   string `json:"qrcode"`
	ImagemQR string `json:"imagemQrcode"`
}

// GetAccessToken returns a cached Efí access token, fetching a fresh one via
// client credentials when the cached token is missing or about to expire.
func (s *EfiService) GetAccessToken() (string, error) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	auth := base64.StdEncoding.EncodeToString(
		[]byte(s.config.EfiClientID + ":" + s.config.EfiClientSecret),
	)

	body := bytes.NewBufferString(`{"grant_type":"client_credentials"}`)
	req, err := http.NewRequest("POST", s.baseURL+"/oauth/token", body)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	defer resp.Body.Close()

	var tokenResp EfiTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token received")
	}

	s.accessToken = tokenResp.AccessToken
	// Refresh 30 seconds early so in-flight requests never carry a stale token
	s.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - 30*time.Second)

	return s.accessToken, nil
}

// CreateCharge creates an immediate PIX charge and its QR code
func (s *EfiService) CreateCharge(amount float64, expirationSeconds int) (*PixCharge, error) {
	accessToken, err := s.GetAccessToken()
	if err != nil {
		return nil, &GatewayError{Reason: "authentication failed", Err: err}
	}

	chargeReq := EfiChargeRequest{
		Chave:              s.config.EfiPixKey,
		SolicitacaoPagador: "Compra na Gamer Store",
	}
	chargeReq.Calendario.Expiracao = expirationSeconds
	chargeReq.Valor.Original = fmt.Sprintf("%.2f", amount)

	jsonData, err := json.Marshal(chargeReq)
	if err != nil {
		return nil, &GatewayError{Reason: "failed to encode charge request", Err: err}
	}

	req, err := http.NewRequest("POST", s.baseURL+"/v2/cob", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &GatewayError{Reason: "failed to create charge request", Err: err}
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &GatewayError{Reason: "charge request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Reason: "failed to read charge response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{Reason: fmt.Sprintf("charge rejected with status %d: %s", resp.StatusCode, respBody)}
	}

	var chargeResp EfiChargeResponse
	if err := json.Unmarshal(respBody, &chargeResp); err != nil {
		return nil, &GatewayError{Reason: "failed to decode charge response", Err: err}
	}
	if chargeResp.TxID == "" {
		return nil, &GatewayError{Reason: "charge response missing txid"}
	}

	qr, err := s.generateQRCode(accessToken, chargeResp.Loc.ID)
	if err != nil {
		return nil, err
	}

	return &PixCharge{
		TxID:          chargeResp.TxID,
		CopyPasteCode: qr.QRCode,
		QRCodeImage:   qr.ImagemQR,
	}, nil
}

// generateQRCode fetches the scannable QR code for a charge location
func (s *EfiService) generateQRCode(accessToken string, locID int) (*EfiQRCodeResponse, error) {
	url := fmt.Sprintf("%s/v2/loc/%d/qrcode", s.baseURL, locID)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, &GatewayError{Reason: "failed to create qrcode request", Err: err}
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &GatewayError{Reason: "qrcode request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &GatewayError{Reason: fmt.Sprintf("qrcode rejected with status %d: %s", resp.StatusCode, body)}
	}

	var qrResp EfiQRCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&qrResp); err != nil {
		return nil, &GatewayError{Reason: "failed to decode qrcode response", Err: err}
	}

	return &qrResp, nil
}
