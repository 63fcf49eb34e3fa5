package outputs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/config"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/metrics"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// recentReportRows is how many cached reports the recent reports table exposes
const recentReportRows = 20

// OID layout below the enterprise OID:
//
//	.1.1.0  cached reports
//	.1.2.0  monitored series (site and metric pairs)
//	.1.3.0  total reports
//	.1.4.0  total poor reports
//	.2.<series>.<column>  per series statistics, ordered by site then metric
//	.3.<row>.<column>     recent reports, oldest first
//
// Timing values are whole milliseconds. CLS values are multiplied by 1000.
const (
	generalBranch = ".1"
	seriesBranch  = ".2"
	recentBranch  = ".3"

	seriesColumns = 10
	recentColumns = 6
)

// SNMPAgent serves the collector's statistics over SNMP v2c and a small HTTP API
type SNMPAgent struct {
	config  *config.SNMPConfig
	stats   *metrics.Collector
	logger  *slog.Logger
	decoder *gosnmp.GoSNMP
	base    string

	done chan struct{}
	wg   sync.WaitGroup

	snmpConn   *net.UDPConn
	httpServer *http.Server

	general map[string]oidHandler
}

// oidHandler returns the value of a scalar OID
type oidHandler func() gosnmp.SnmpPDU

// NewSNMPAgent creates and starts an SNMP agent backed by stats
func NewSNMPAgent(cfg *config.SNMPConfig, stats *metrics.Collector, logger *slog.Logger) (*SNMPAgent, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	s := newSNMPAgent(cfg, stats, logger)

	if err := s.startSNMPServer(); err != nil {
		return nil, fmt.Errorf("failed to start SNMP server: %w", err)
	}

	s.startHTTPServer()

	s.logger.Info("SNMP agent listening",
		"addr", fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.Port),
		"api", fmt.Sprintf("%s:%d/snmp/data", cfg.ListenAddress, cfg.APIPort),
		"enterprise_oid", s.base,
	)

	return s, nil
}

func newSNMPAgent(cfg *config.SNMPConfig, stats *metrics.Collector, logger *slog.Logger) *SNMPAgent {
	if logger == nil {
		logger = slog.Default()
	}

	base := cfg.EnterpriseOID
	if !strings.HasPrefix(base, ".") {
		base = "." + base
	}

	s := &SNMPAgent{
		config: cfg,
		stats:  stats,
		logger: logger,
		base:   base,
		done:   make(chan struct{}),
		decoder: &gosnmp.GoSNMP{
			Version:   gosnmp.Version2c,
			Community: cfg.Community,
			Transport: "udp",
			MaxOids:   gosnmp.MaxOids,
		},
	}
	s.initializeGeneral()
	return s
}

func (s *SNMPAgent) initializeGeneral() {
	g := s.base + generalBranch
	s.general = map[string]oidHandler{
		g + ".1.0": func() gosnmp.SnmpPDU {
			return gauge(g+".1.0", s.stats.Cache().Count())
		},
		g + ".2.0": func() gosnmp.SnmpPDU {
			return gauge(g+".2.0", len(s.stats.Snapshot()))
		},
		g + ".3.0": func() gosnmp.SnmpPDU {
			var total int64
			for _, st := range s.stats.Snapshot() {
				total += st.Count
			}
			return counter(g+".3.0", total)
		},
		g + ".4.0": func() gosnmp.SnmpPDU {
			var total int64
			for _, st := range s.stats.Snapshot() {
				total += st.Poor
			}
			return counter(g+".4.0", total)
		},
	}
}

func (s *SNMPAgent) startSNMPServer() error {
	addr := fmt.Sprintf("%s:%d", s.config.ListenAddress, s.config.Port)
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}
	s.snmpConn = conn

	s.wg.Add(1)
	go s.handleSNMPPackets()

	return nil
}

func (s *SNMPAgent) handleSNMPPackets() {
	defer s.wg.Done()
	defer s.snmpConn.Close()

	buffer := make([]byte, 65535)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		// Deadline lets the loop notice done
		_ = s.snmpConn.SetReadDeadline(time.Now().Add(1 * time.Second))

		n, remoteAddr, err := s.snmpConn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Warn("SNMP read error", "error", err)
			continue
		}

		packet := make([]byte, n)
		copy(packet, buffer[:n])
		go func() {
			response, err := s.respond(packet)
			if err != nil {
				s.logger.Debug("SNMP request dropped", "remote", remoteAddr.String(), "error", err)
				return
			}
			if _, err := s.snmpConn.WriteToUDP(response, remoteAddr); err != nil {
				s.logger.Warn("failed to send SNMP response", "error", err)
			}
		}()
	}
}

// respond decodes one request and encodes its response
func (s *SNMPAgent) respond(data []byte) ([]byte, error) {
	packet, err := s.decoder.SnmpDecodePacket(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode SNMP packet: %w", err)
	}

	if packet.Community != s.config.Community {
		return nil, errors.New("invalid community")
	}

	var response *gosnmp.SnmpPacket
	switch packet.PDUType {
	case gosnmp.GetRequest:
		response = s.handleGetRequest(packet)
	case gosnmp.GetNextRequest:
		response = s.handleGetNextRequest(packet)
	case gosnmp.GetBulkRequest:
		response = s.handleGetBulkRequest(packet)
	default:
		return nil, fmt.Errorf("unsupported PDU type %v", packet.PDUType)
	}

	return response.MarshalMsg()
}

func newResponse(packet *gosnmp.SnmpPacket) *gosnmp.SnmpPacket {
	return &gosnmp.SnmpPacket{
		Version:   packet.Version,
		Community: packet.Community,
		PDUType:   gosnmp.GetResponse,
		RequestID: packet.RequestID,
		Variables: make([]gosnmp.SnmpPDU, 0, len(packet.Variables)),
	}
}

func (s *SNMPAgent) handleGetRequest(packet *gosnmp.SnmpPacket) *gosnmp.SnmpPacket {
	response := newResponse(packet)
	for _, v := range packet.Variables {
		response.Variables = append(response.Variables, s.getOIDValue(v.Name))
	}
	return response
}

func (s *SNMPAgent) handleGetNextRequest(packet *gosnmp.SnmpPacket) *gosnmp.SnmpPacket {
	response := newResponse(packet)
	for _, v := range packet.Variables {
		response.Variables = append(response.Variables, s.getNextOID(v.Name))
	}
	return response
}

func (s *SNMPAgent) handleGetBulkRequest(packet *gosnmp.SnmpPacket) *gosnmp.SnmpPacket {
	response := newResponse(packet)

	maxReps := packet.MaxRepetitions
	if maxReps == 0 {
		maxReps = 10
	}

	for _, v := range packet.Variables {
		current := v.Name
		for i := uint32(0); i < maxReps; i++ {
			pdu := s.getNextOID(current)
			if pdu.Type == gosnmp.EndOfMibView {
				break
			}
			response.Variables = append(response.Variables, pdu)
			current = pdu.Name
		}
	}

	return response
}

func (s *SNMPAgent) getOIDValue(oid string) gosnmp.SnmpPDU {
	if !strings.HasPrefix(oid, ".") {
		oid = "." + oid
	}

	if handler, ok := s.general[oid]; ok {
		return handler()
	}

	if strings.HasPrefix(oid, s.base+seriesBranch+".") {
		return s.getSeriesOID(oid)
	}
	if strings.HasPrefix(oid, s.base+recentBranch+".") {
		return s.getRecentOID(oid)
	}

	return noSuchInstance(oid)
}

func (s *SNMPAgent) getNextOID(oid string) gosnmp.SnmpPDU {
	for _, next := range s.getAllOIDs() {
		if oidCompare(oid, next) < 0 {
			return s.getOIDValue(next)
		}
	}

	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.EndOfMibView}
}

// getAllOIDs returns every served OID in lexicographic order
func (s *SNMPAgent) getAllOIDs() []string {
	series := len(s.stats.Snapshot())
	recent := len(s.stats.GetRecentReports(recentReportRows))

	oids := make([]string, 0, len(s.general)+series*seriesColumns+recent*recentColumns)
	for oid := range s.general {
		oids = append(oids, oid)
	}
	for i := 1; i <= series; i++ {
		for col := 1; col <= seriesColumns; col++ {
			oids = append(oids, fmt.Sprintf("%s%s.%d.%d", s.base, seriesBranch, i, col))
		}
	}
	for i := 1; i <= recent; i++ {
		for col := 1; col <= recentColumns; col++ {
			oids = append(oids, fmt.Sprintf("%s%s.%d.%d", s.base, recentBranch, i, col))
		}
	}

	sortOIDs(oids)
	return oids
}

// parseRow splits "<prefix>.<row>.<column>" into its 1-based row and column
func parseRow(oid, prefix string) (row, col int, ok bool) {
	parts := strings.Split(strings.TrimPrefix(oid, prefix+"."), ".")
	if len(parts) != 2 {
		return 0, 0, false
	}
	row, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	col, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return row, col, true
}

func (s *SNMPAgent) getSeriesOID(oid string) gosnmp.SnmpPDU {
	row, col, ok := parseRow(oid, s.base+seriesBranch)
	if !ok {
		return noSuchInstance(oid)
	}

	snapshot := s.stats.Snapshot()
	if row < 1 || row > len(snapshot) {
		return noSuchInstance(oid)
	}
	st := snapshot[row-1]

	switch col {
	case 1:
		return octets(oid, st.Site)
	case 2:
		return octets(oid, string(st.Metric))
	case 3:
		return counter(oid, st.Count)
	case 4:
		return gauge(oid, scaledValue(st.Metric, st.P75))
	case 5:
		return octets(oid, string(st.Rating))
	case 6:
		return gauge(oid, scaledValue(st.Metric, st.Last))
	case 7:
		return counter(oid, st.Good)
	case 8:
		return counter(oid, st.NeedsImprovement)
	case 9:
		return counter(oid, st.Poor)
	case 10:
		return counter(oid, st.LastReport.Unix())
	}
	return noSuchInstance(oid)
}

func (s *SNMPAgent) getRecentOID(oid string) gosnmp.SnmpPDU {
	row, col, ok := parseRow(oid, s.base+recentBranch)
	if !ok {
		return noSuchInstance(oid)
	}

	reports := s.stats.GetRecentReports(recentReportRows)
	if row < 1 || row > len(reports) {
		return noSuchInstance(oid)
	}
	r := reports[row-1]

	switch col {
	case 1:
		return octets(oid, r.Site.Name)
	case 2:
		return octets(oid, string(r.Metric.Name))
	case 3:
		return counter(oid, r.Timestamp.Unix())
	case 4:
		return gauge(oid, scaledValue(r.Metric.Name, r.Metric.Value))
	case 5:
		return octets(oid, string(r.Metric.Rating))
	case 6:
		return octets(oid, string(r.Metric.NavigationType))
	}
	return noSuchInstance(oid)
}

func noSuchInstance(oid string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.NoSuchInstance}
}

func octets(oid, v string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.OctetString, Value: v}
}

func gauge(oid string, v int) gosnmp.SnmpPDU {
	if v < 0 {
		v = 0
	}
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Gauge32, Value: uint(v)}
}

func counter(oid string, v int64) gosnmp.SnmpPDU {
	if v < 0 {
		v = 0
	}
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Counter64, Value: uint64(v)}
}

// scaledValue converts a metric value to the integer SNMP exposes
func scaledValue(name models.MetricName, v float64) int {
	if name == models.MetricCLS {
		return int(math.Round(v * 1000))
	}
	return int(math.Round(v))
}

// oidCompare compares two OIDs lexicographically
func oidCompare(oid1, oid2 string) int {
	oid1 = strings.TrimPrefix(oid1, ".")
	oid2 = strings.TrimPrefix(oid2, ".")

	parts1 := strings.Split(oid1, ".")
	parts2 := strings.Split(oid2, ".")

	for i := 0; i < len(parts1) && i < len(parts2); i++ {
		n1, _ := strconv.Atoi(parts1[i])
		n2, _ := strconv.Atoi(parts2[i])

		if n1 < n2 {
			return -1
		} else if n1 > n2 {
			return 1
		}
	}

	if len(parts1) < len(parts2) {
		return -1
	} else if len(parts1) > len(parts2) {
		return 1
	}

	return 0
}

// sortOIDs sorts OIDs in lexicographic order
func sortOIDs(oids []string) {
	sort.SliceStable(oids, func(i, j int) bool {
		return oidCompare(oids[i], oids[j]) < 0
	})
}

func (s *SNMPAgent) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/snmp/data", s.handleDataRequest)
	mux.HandleFunc("/snmp/mib", s.handleMIBRequest)
	mux.HandleFunc("/snmp/oids", s.handleOIDListRequest)
	return mux
}

func (s *SNMPAgent) startHTTPServer() {
	addr := fmt.Sprintf("%s:%d", s.config.ListenAddress, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("SNMP HTTP server error", "error", err)
		}
	}()
}

func (s *SNMPAgent) handleDataRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.GetSNMPData()); err != nil {
		s.logger.Error("error encoding SNMP data", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *SNMPAgent) handleMIBRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, s.ExportMIBData())
}

func (s *SNMPAgent) handleOIDListRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.getAllOIDs()); err != nil {
		s.logger.Error("error encoding OID list", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// SNMPData is the JSON view of everything the agent serves
type SNMPData struct {
	EnterpriseOID string                `json:"enterprise_oid"`
	CachedReports int                   `json:"cached_reports"`
	Series        []metrics.MetricStats `json:"series"`
	Recent        []*models.Report      `json:"recent"`
}

// GetSNMPData returns the agent's data for the HTTP API
func (s *SNMPAgent) GetSNMPData() SNMPData {
	return SNMPData{
		EnterpriseOID: s.base,
		CachedReports: s.stats.Cache().Count(),
		Series:        s.stats.Snapshot(),
		Recent:        s.stats.GetRecentReports(recentReportRows),
	}
}

// ExportMIBData describes the current state in a MIB-like text form
func (s *SNMPAgent) ExportMIBData() string {
	var b strings.Builder

	fmt.Fprintf(&b, "-- Web Vitals Monitor MIB (simplified)\n")
	fmt.Fprintf(&b, "-- Enterprise OID: %s\n", s.base)
	fmt.Fprintf(&b, "-- Timing values in ms, CLS multiplied by 1000\n\n")
	fmt.Fprintf(&b, "Cached Reports: %d\n", s.stats.Cache().Count())

	snapshot := s.stats.Snapshot()
	fmt.Fprintf(&b, "Monitored Series: %d\n", len(snapshot))

	for i, st := range snapshot {
		fmt.Fprintf(&b, "\n%s%s.%d  %s %s\n", s.base, seriesBranch, i+1, st.Site, st.Metric)
		fmt.Fprintf(&b, "  Reports: %d\n", st.Count)
		fmt.Fprintf(&b, "  P75: %d (%s)\n", scaledValue(st.Metric, st.P75), st.Rating)
		fmt.Fprintf(&b, "  Good/NI/Poor: %d/%d/%d\n", st.Good, st.NeedsImprovement, st.Poor)
	}

	return b.String()
}

// Close shuts down the SNMP agent
func (s *SNMPAgent) Close() error {
	if s == nil {
		return nil
	}

	s.logger.Info("shutting down SNMP agent")
	close(s.done)

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("error shutting down SNMP HTTP server", "error", err)
		}
	}

	s.wg.Wait()

	for _, st := range s.stats.Snapshot() {
		s.logger.Info("final statistics",
			"site", st.Site, "metric", st.Metric,
			"reports", st.Count, "p75", st.P75, "rating", st.Rating)
	}

	return nil
}
