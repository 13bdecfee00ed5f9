package bots_monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"xrpl-listing-bot/internal/clients_api/listings"
	"xrpl-listing-bot/internal/features/detector"
	"xrpl-listing-bot/internal/infra/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSource struct {
	name   string
	tokens []listings.Token
	err    error
	calls  int
}

func (f *fakeSource) Name() string  { return f.name }
func (f *fakeSource) Title() string { return strings.ToUpper(f.name) }
func (f *fakeSource) Fetch(ctx context.Context) ([]listings.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

type alert struct {
	title string
	id    string
}

type fakeNotifier struct {
	alerts []alert
	failOn map[string]bool
}

func (f *fakeNotifier) NotifyNewToken(ctx context.Context, sourceTitle string, tok listings.Token) error {
	if f.failOn[tok.ID] {
		return errors.New("telegram down")
	}
	f.alerts = append(f.alerts, alert{title: sourceTitle, id: tok.ID})
	return nil
}

func toks(source string, ids ...string) []listings.Token {
	out := make([]listings.Token, 0, len(ids))
	for _, id := range ids {
		out = append(out, listings.Token{Source: source, ID: id})
	}
	return out
}

func newMonitor(t *testing.T, n Notifier, sources ...listings.Source) (*ListingMonitor, *detector.Detector) {
	t.Helper()
	det, err := detector.New(context.Background(), nil)
	if err != nil {
		t.Fatalf("detector.New: %v", err)
	}
	return NewListingMonitor(sources, det, n, time.Hour), det
}

func TestRunOnceAlertsEachNewTokenOnce(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{name: "firstledger", tokens: toks("firstledger", "A", "B")}
	n := &fakeNotifier{}
	m, _ := newMonitor(t, n, src)

	rep := m.RunOnce(ctx)
	if rep.New != 2 || rep.Alerts != 2 || rep.Failed != 0 {
		t.Fatalf("first cycle report = %+v", rep)
	}
	if rep.CycleID == "" {
		t.Error("cycle id is empty")
	}

	src.tokens = toks("firstledger", "A", "B", "C")
	m.RunOnce(ctx)
	m.RunOnce(ctx)

	var got []string
	for _, a := range n.alerts {
		got = append(got, a.id)
	}
	if strings.Join(got, ",") != "A,B,C" {
		t.Errorf("alerts = %v, want [A B C]", got)
	}
	if n.alerts[0].title != "FIRSTLEDGER" {
		t.Errorf("alert title = %q", n.alerts[0].title)
	}
}

func TestFetchFailureLeavesStateAndOtherSources(t *testing.T) {
	ctx := context.Background()
	broken := &fakeSource{name: "xrplto", tokens: toks("xrplto", "X1")}
	healthy := &fakeSource{name: "xpmarket", tokens: toks("xpmarket", "P1")}
	n := &fakeNotifier{}
	m, det := newMonitor(t, n, broken, healthy)

	m.RunOnce(ctx)
	before := det.Counts()

	broken.err = errors.New("connection refused")
	healthy.tokens = toks("xpmarket", "P1", "P2")
	rep := m.RunOnce(ctx)

	if rep.Failed != 1 || rep.New != 1 {
		t.Fatalf("report = %+v, want 1 failed and 1 new", rep)
	}
	if got := det.Counts()["xrplto"]; got != before["xrplto"] {
		t.Errorf("failed source count changed: %d -> %d", before["xrplto"], got)
	}
	if !det.Seen("xpmarket", "P2") {
		t.Error("healthy source was not processed in the same cycle")
	}
	if healthy.calls != 2 {
		t.Errorf("healthy source fetched %d times, want 2", healthy.calls)
	}

	// recovery alerts only what is really new
	broken.err = nil
	broken.tokens = toks("xrplto", "X1", "X2")
	m.RunOnce(ctx)
	last := n.alerts[len(n.alerts)-1]
	if last.id != "X2" || len(n.alerts) != 4 {
		t.Errorf("alerts = %+v", n.alerts)
	}
}

func TestSendFailureDoesNotReAlert(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{name: "firstledger", tokens: toks("firstledger", "A", "B")}
	n := &fakeNotifier{failOn: map[string]bool{"A": true}}
	m, det := newMonitor(t, n, src)

	rep := m.RunOnce(ctx)
	if rep.New != 2 || rep.Alerts != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if !det.Seen("firstledger", "A") {
		t.Error("token must be recorded even when its alert failed")
	}

	n.failOn = nil
	m.RunOnce(ctx)
	if len(n.alerts) != 1 {
		t.Errorf("alerts = %+v, want only B", n.alerts)
	}
}

func TestNilNotifierRecordsOnly(t *testing.T) {
	src := &fakeSource{name: "firstledger", tokens: toks("firstledger", "A")}
	m, det := newMonitor(t, nil, src)

	rep := m.RunOnce(context.Background())
	if rep.New != 1 || rep.Alerts != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if !det.Seen("firstledger", "A") {
		t.Error("token not recorded")
	}
}

func TestStatusTracksSources(t *testing.T) {
	ctx := context.Background()
	ok := &fakeSource{name: "firstledger", tokens: toks("firstledger", "A", "B")}
	bad := &fakeSource{name: "xrplto", err: errors.New("HTTP 503")}
	m, _ := newMonitor(t, &fakeNotifier{}, ok, bad)

	if st := m.Status(); !st[0].LastPoll.IsZero() {
		t.Fatalf("status before first poll = %+v", st[0])
	}
	m.RunOnce(ctx)

	st := m.Status()
	if len(st) != 2 || st[0].Name != "firstledger" || st[1].Name != "xrplto" {
		t.Fatalf("status order = %+v", st)
	}
	if st[0].Seen != 2 || st[0].LastNew != 2 || st[0].TotalAlerts != 2 || st[0].LastError != "" {
		t.Errorf("firstledger status = %+v", st[0])
	}
	if st[1].LastError != "HTTP 503" || st[1].LastPoll.IsZero() {
		t.Errorf("xrplto status = %+v", st[1])
	}
	if m.Cycles() != 1 {
		t.Errorf("cycles = %d", m.Cycles())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{name: "firstledger", tokens: toks("firstledger", "A")}
	m, _ := newMonitor(t, &fakeNotifier{}, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for m.Cycles() == 0 {
		select {
		case <-deadline:
			t.Fatal("first cycle did not run")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestKeepalivePing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client := srv.Client()
	if err := ping(context.Background(), client, srv.URL+"/"); err != nil {
		t.Errorf("ping: %v", err)
	}
	if err := ping(context.Background(), client, srv.URL+"/down"); err == nil {
		t.Error("expected error on 502")
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d", hits.Load())
	}
}

func TestKeepaliveMonitorPingsOnInterval(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunKeepaliveMonitor(ctx, srv.URL, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for hits.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("keep-alive did not ping")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	<-done
}

type fakeStatus struct {
	list []SourceStatus
}

func (f fakeStatus) Status() []SourceStatus { return f.list }
func (f fakeStatus) Uptime() time.Duration  { return 90*time.Minute + 500*time.Millisecond }
func (f fakeStatus) Cycles() int            { return 7 }

func TestCommandReplies(t *testing.T) {
	polled := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	st := fakeStatus{list: []SourceStatus{
		{Name: "firstledger", Title: "FirstLedger", LastPoll: polled, LastFetched: 50, LastNew: 1, TotalAlerts: 3, Seen: 50},
		{Name: "xrplto", Title: "XRPL.to", LastPoll: polled, LastError: "HTTP 503: <html>"},
		{Name: "xpmarket", Title: "XPMarket"},
	}}

	if got, ok := commandReply("start", st); !ok || !strings.HasPrefix(got, "Welcome to the XRPL Wallet Tracker Bot!") {
		t.Errorf("/start = %q", got)
	}
	if got, ok := commandReply("help", st); !ok || !strings.Contains(got, "/status") {
		t.Errorf("/help = %q", got)
	}

	status, ok := commandReply("status", st)
	if !ok {
		t.Fatal("/status not handled")
	}
	for _, want := range []string{
		"Uptime: 1h30m0s, poll cycles: 7",
		"✓ 12:30:00: 50 listed, 1 new",
		"seen: 50, alerts sent: 3",
		"✗ 12:30:00: HTTP 503: &lt;html&gt;",
		"not polled yet",
	} {
		if !strings.Contains(status, want) {
			t.Errorf("/status missing %q:\n%s", want, status)
		}
	}

	sources, _ := commandReply("sources", st)
	if !strings.Contains(sources, "XRPL.to (<code>xrplto</code>)") {
		t.Errorf("/sources = %q", sources)
	}

	if _, ok := commandReply("flashadd", st); ok {
		t.Error("unknown command should be ignored")
	}
}

type fakeBot struct {
	sent []tgbotapi.Chattable
}

func (f *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}
func (f *fakeBot) StopReceivingUpdates() {}
func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func commandUpdate(chatID int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 10,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{UserName: "alice"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func TestHandleUpdateOnlyAnswersConfiguredChat(t *testing.T) {
	bot := &fakeBot{}
	const chatID = -1003190218710

	handleUpdate(bot, commandUpdate(12345, "/start"), chatID, fakeStatus{})
	if len(bot.sent) != 0 {
		t.Fatalf("answered a foreign chat: %d messages", len(bot.sent))
	}

	handleUpdate(bot, commandUpdate(chatID, "/start@xrpl_listing_bot"), chatID, fakeStatus{})
	if len(bot.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(bot.sent))
	}
	msg := bot.sent[0].(tgbotapi.MessageConfig)
	if msg.ReplyToMessageID != 10 || msg.ChatID != chatID {
		t.Errorf("reply = %+v", msg)
	}

	handleUpdate(bot, tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: "gm"}}, chatID, fakeStatus{})
	if len(bot.sent) != 1 {
		t.Error("plain text should be ignored")
	}
}

func TestRunCommandHandlerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunCommandHandler(ctx, &fakeBot{}, 1, fakeStatus{})
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("command handler did not stop")
	}
}

func TestTrippedSourceRecoversOnNextTick(t *testing.T) {
	var down atomic.Bool
	down.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"currency":"SOLO","issuer":"rsoLo2S1kiGeCcn6hCUXVrCpGMWLrRrLZz","name":"Sologenic"}]`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		App: config.AppConfig{PollInterval: 1, RequestTimeout: 5, BreakerFailures: 5, BreakerTimeout: 300},
		Sources: []config.SourceConfig{
			{Name: "fl", URL: srv.URL, CurrencyField: "currency", IssuerField: "issuer", NameField: "name"},
		},
	}
	sources, err := listings.BuildSources(cfg)
	if err != nil {
		t.Fatalf("BuildSources: %v", err)
	}
	n := &fakeNotifier{}
	m, _ := newMonitor(t, n, sources...)

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		m.RunOnce(ctx)
	}
	if st := m.Status()[0]; !strings.Contains(st.LastError, "circuit open") {
		t.Fatalf("breaker should be open after repeated 502s, last error %q", st.LastError)
	}

	down.Store(false)
	time.Sleep(cfg.PollInterval())

	rep := m.RunOnce(ctx)
	if rep.Failed != 0 || rep.New != 1 || rep.Alerts != 1 {
		t.Fatalf("report after recovery = %+v, last error %q", rep, m.Status()[0].LastError)
	}
}
