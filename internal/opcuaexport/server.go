// Package opcuaexport is the OPC UA boundary adapter: it republishes a
// running Session's per-line KPI and per-buffer level readings as OPC
// UA variable nodes, with a self-signed PKI bootstrapped on first
// start. Station state is not published.
package opcuaexport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/awcullen/opcua/server"
	"github.com/awcullen/opcua/ua"
	"github.com/rs/zerolog/log"
)

const (
	pkiDir   = "./pki"
	certFile = "./pki/server.crt"
	keyFile  = "./pki/server.key"
)

// DataType is the subset of OPC UA builtin types this exporter's node
// definitions use.
type DataType int

const (
	DataTypeDouble DataType = iota
	DataTypeInt64
	DataTypeString
	DataTypeBool
)

// builtinDataType maps DataType to the OPC UA builtin data type node id
// used as a VariableNode's DataType argument.
func builtinDataType(dt DataType) ua.NodeID {
	switch dt {
	case DataTypeDouble:
		return ua.DataTypeIDDouble
	case DataTypeInt64:
		return ua.DataTypeIDInt64
	case DataTypeString:
		return ua.DataTypeIDString
	case DataTypeBool:
		return ua.DataTypeIDBoolean
	default:
		return ua.DataTypeIDString
	}
}

// NodeDefinition describes one OPC UA tag this exporter publishes.
type NodeDefinition struct {
	Name         string
	DisplayName  string
	Description  string
	DataType     DataType
	Unit         string
	InitialValue interface{}
}

type namespaceNodes struct {
	folderName string
	folderDesc string
	nodeDefs   []NodeDefinition
	varNodes   map[string]*server.VariableNode
	values     map[string]interface{}
}

// Server wraps an awcullen/opcua server exposing one or more
// namespaces of plant tags. Every caller goes through
// RegisterNamespace/UpdateNamespaceValues.
type Server struct {
	srv  *server.Server
	port int
	name string

	mu         sync.RWMutex
	namespaces map[uint16]*namespaceNodes
}

// NewServer creates an unstarted Server. appName identifies the process
// in the self-signed certificate's subject and application URI.
func NewServer(port int, appName string) *Server {
	return &Server{
		port:       port,
		name:       appName,
		namespaces: make(map[uint16]*namespaceNodes),
	}
}

func ensurePKI(appName string) error {
	if _, err := os.Stat(certFile); err == nil {
		return nil
	}
	if err := os.MkdirAll(pkiDir, 0755); err != nil {
		return fmt.Errorf("create PKI directory: %w", err)
	}
	return createSelfSignedCert(appName, certFile, keyFile)
}

func createSelfSignedCert(appName, certPath, keyPath string) error {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   appName,
			Organization: []string{"Plant Simulation"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost", appName, "plantsim"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("0.0.0.0")},
		URIs:                  []*url.URL{{Scheme: "urn", Opaque: "plantsim:" + appName}},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}

	certOut, err := os.Create(certPath)
	if err != nil {
		return fmt.Errorf("create cert file: %w", err)
	}
	defer certOut.Close()
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: certDER}); err != nil {
		return fmt.Errorf("encode certificate: %w", err)
	}

	keyOut, err := os.Create(keyPath)
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}
	defer keyOut.Close()
	keyDER := x509.MarshalPKCS1PrivateKey(privateKey)
	if err := pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: keyDER}); err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}

	return nil
}

// Start brings the OPC UA endpoint up and registers every namespace
// queued via RegisterNamespace before Start was called. A failure to
// stand up PKI or the server itself is logged and treated as export
// disabled rather than fatal: the simulation runs fine without a live
// OPC UA endpoint.
func (s *Server) Start(ctx context.Context) error {
	endpoint := fmt.Sprintf("opc.tcp://0.0.0.0:%d", s.port)

	if err := ensurePKI(s.name); err != nil {
		log.Warn().Err(err).Msg("opcuaexport: PKI bootstrap failed, export disabled")
		return nil
	}

	var srv *server.Server
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn().Interface("panic", r).Msg("opcuaexport: server creation panicked, export disabled")
			}
		}()
		var err error
		srv, err = server.New(
			ua.ApplicationDescription{
				ApplicationURI:  "urn:plantsim:" + s.name,
				ProductURI:      "urn:plantsim",
				ApplicationName: ua.LocalizedText{Text: "Plant Simulation", Locale: "en"},
				ApplicationType: ua.ApplicationTypeServer,
			},
			certFile, keyFile, endpoint,
			server.WithAnonymousIdentity(true),
			server.WithSecurityPolicyNone(true),
			server.WithInsecureSkipVerify(),
		)
		if err != nil {
			log.Warn().Err(err).Msg("opcuaexport: server creation failed, export disabled")
			srv = nil
		}
	}()

	if srv == nil {
		return nil
	}
	s.srv = srv

	if err := s.registerPendingNamespaces(); err != nil {
		return err
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("opcuaexport: server panic")
			}
		}()
		if err := srv.ListenAndServe(); err != nil {
			log.Error().Err(err).Msg("opcuaexport: server error")
		}
	}()

	log.Info().Int("port", s.port).Msg("opcuaexport: server started")
	return nil
}

// Stop closes the OPC UA endpoint, if it was started.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Close()
	}
	return nil
}

// RegisterNamespace queues a namespace of tags. Safe to call before or
// after Start; nodes queued before Start are created once the server
// comes up, nodes queued after are created immediately.
func (s *Server) RegisterNamespace(nsIndex uint16, folderName, folderDesc string, nodes []NodeDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := &namespaceNodes{
		folderName: folderName,
		folderDesc: folderDesc,
		nodeDefs:   nodes,
		varNodes:   make(map[string]*server.VariableNode),
		values:     make(map[string]interface{}),
	}
	for _, def := range nodes {
		ns.values[def.Name] = def.InitialValue
	}
	s.namespaces[nsIndex] = ns

	if s.srv == nil {
		return nil
	}
	return s.createNamespaceNodes(nsIndex, ns)
}

func (s *Server) createNamespaceNodes(nsIndex uint16, ns *namespaceNodes) error {
	nm := s.srv.NamespaceManager()

	folder := server.NewObjectNode(
		s.srv,
		ua.NodeIDString{NamespaceIndex: nsIndex, ID: ns.folderName},
		ua.QualifiedName{NamespaceIndex: nsIndex, Name: ns.folderName},
		ua.LocalizedText{Text: ns.folderName},
		ua.LocalizedText{Text: ns.folderDesc},
		nil,
		[]ua.Reference{{
			ReferenceTypeID: ua.ReferenceTypeIDOrganizes,
			IsInverse:       true,
			TargetID:        ua.ExpandedNodeID{NodeID: ua.ObjectIDObjectsFolder},
		}},
		0,
	)
	nm.AddNode(folder)

	for _, def := range ns.nodeDefs {
		now := time.Now().UTC()
		varNode := server.NewVariableNode(
			s.srv,
			ua.NodeIDString{NamespaceIndex: nsIndex, ID: ns.folderName + "." + def.Name},
			ua.QualifiedName{NamespaceIndex: nsIndex, Name: def.Name},
			ua.LocalizedText{Text: def.DisplayName},
			ua.LocalizedText{Text: def.Description},
			nil,
			[]ua.Reference{{
				ReferenceTypeID: ua.ReferenceTypeIDHasComponent,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.NodeIDString{NamespaceIndex: nsIndex, ID: ns.folderName}},
			}},
			ua.NewDataValue(def.InitialValue, 0, now, 0, now, 0),
			builtinDataType(def.DataType),
			ua.ValueRankScalar,
			[]uint32{},
			ua.AccessLevelsCurrentRead,
			250.0,
			false,
			nil,
		)
		nm.AddNode(varNode)
		ns.varNodes[def.Name] = varNode
	}

	return nil
}

func (s *Server) registerPendingNamespaces() error {
	for nsIndex, ns := range s.namespaces {
		if err := s.createNamespaceNodes(nsIndex, ns); err != nil {
			return err
		}
	}
	return nil
}

// UpdateNamespaceValues pushes new values for an already-registered
// namespace. Unknown node names are ignored so a caller can pass a
// superset map without tracking exactly which tags exist.
func (s *Server) UpdateNamespaceValues(nsIndex uint16, values map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[nsIndex]
	if !ok {
		return
	}

	now := time.Now().UTC()
	for name, value := range values {
		ns.values[name] = value
		if varNode, ok := ns.varNodes[name]; ok {
			varNode.SetValue(ua.NewDataValue(value, 0, now, 0, now, 0))
		}
	}
}
