package relay

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dict-relay-bot/internal/common/errors"
	dictdomain "dict-relay-bot/internal/domain/dictionary"
	udomain "dict-relay-bot/internal/domain/user"
	tg "dict-relay-bot/internal/platform/telegram"
	"dict-relay-bot/internal/service/directory"
)

const (
	testGroupID = int64(-100200300)
	testAdminID = int64(42)
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]*udomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*udomain.User)}
}

func (r *memUserRepo) Upsert(_ context.Context, id int64, p udomain.Profile) (*udomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		u = &udomain.User{ID: id}
		r.users[id] = u
	}
	// Display fields only; ban state and thread assignment carry forward.
	u.Username = p.Username
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*udomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByThreadID(_ context.Context, threadID int64) (*udomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ThreadID == threadID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) SetThreadID(_ context.Context, id, threadID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	u.ThreadID = threadID
	return true, nil
}

func (r *memUserRepo) SetBanned(_ context.Context, id int64, banned bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	u.IsBanned = banned
	return true, nil
}

func (r *memUserRepo) List(_ context.Context) ([]udomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]udomain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) Count(_ context.Context) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	banned := 0
	for _, u := range r.users {
		if u.IsBanned {
			banned++
		}
	}
	return len(r.users), banned, nil
}

type memDictRepo struct {
	entries map[string]string
}

func newMemDictRepo() *memDictRepo { return &memDictRepo{entries: make(map[string]string)} }

func (r *memDictRepo) normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

func (r *memDictRepo) Add(_ context.Context, term, translation string) error {
	key := r.normalize(term)
	if _, ok := r.entries[key]; ok {
		return apperrors.NewEntryExistsError(key)
	}
	r.entries[key] = strings.TrimSpace(translation)
	return nil
}

func (r *memDictRepo) Lookup(_ context.Context, term string) (string, error) {
	key := r.normalize(term)
	v, ok := r.entries[key]
	if !ok {
		return "", apperrors.NewEntryNotFoundError(key)
	}
	return v, nil
}

func (r *memDictRepo) Delete(_ context.Context, term string) (bool, error) {
	key := r.normalize(term)
	if _, ok := r.entries[key]; !ok {
		return false, nil
	}
	delete(r.entries, key)
	return true, nil
}

func (r *memDictRepo) List(_ context.Context) ([]dictdomain.Entry, error) {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]dictdomain.Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, dictdomain.Entry{Term: k, Translation: r.entries[k]})
	}
	return out, nil
}

func (r *memDictRepo) Count(_ context.Context) (int, error) { return len(r.entries), nil }

type storedSuggestion struct {
	userID            int64
	term, translation string
}

type memSuggestionRepo struct {
	added []storedSuggestion
}

func (r *memSuggestionRepo) Add(_ context.Context, userID int64, term, translation string) error {
	r.added = append(r.added, storedSuggestion{userID: userID, term: term, translation: translation})
	return nil
}

type sentMessage struct {
	chatID   int64
	text     string
	threadID int64
}

type forwardedMessage struct {
	chatID, fromChatID, messageID, threadID int64
}

// fakeTransport records outbound calls and fails on demand.
type fakeTransport struct {
	mu          sync.Mutex
	sent        []sentMessage
	forwards    []forwardedMessage
	failSendTo  map[int64]bool
	failForward bool
	nextTopicID int64
	topicErr    error
	topicsMade  int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failSendTo: make(map[int64]bool), nextTopicID: 777}
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, opts *tg.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSendTo[chatID] {
		return apperrors.NewTelegramAPIError("sendMessage", assert.AnError)
	}
	var threadID int64
	if opts != nil {
		threadID = opts.ThreadID
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, threadID: threadID})
	return nil
}

func (f *fakeTransport) ForwardMessage(_ context.Context, chatID, fromChatID, messageID, threadID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failForward {
		return apperrors.NewTelegramAPIError("forwardMessage", assert.AnError)
	}
	f.forwards = append(f.forwards, forwardedMessage{chatID, fromChatID, messageID, threadID})
	return nil
}

func (f *fakeTransport) CreateForumTopic(_ context.Context, _ int64, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.topicErr != nil {
		return 0, f.topicErr
	}
	f.topicsMade++
	return f.nextTopicID, nil
}

func (f *fakeTransport) sentTo(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.chatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func newRelayService(users *memUserRepo, dict *memDictRepo, suggestions *memSuggestionRepo, transport *fakeTransport) *Service {
	dir := directory.NewService(users, transport, testGroupID, testAdminID)
	return NewService(users, dict, suggestions, dir, transport, testGroupID, testAdminID)
}

func privateMessage(userID int64, text string) *tg.Message {
	return &tg.Message{
		MessageID: 1,
		From:      &tg.User{ID: userID, FirstName: "Олена"},
		Chat:      tg.Chat{ID: userID, Type: "private"},
		Text:      text,
	}
}

func TestHandlePrivateMessage_Suggestion(t *testing.T) {
	users := newMemUserRepo()
	dict := newMemDictRepo()
	suggestions := &memSuggestionRepo{}
	transport := newFakeTransport()
	svc := newRelayService(users, dict, suggestions, transport)

	svc.HandlePrivateMessage(context.Background(), privateMessage(10, "splash - плюсь"))

	require.Len(t, suggestions.added, 1)
	assert.Equal(t, int64(10), suggestions.added[0].userID)
	assert.Equal(t, "splash", suggestions.added[0].term)
	assert.Equal(t, "плюсь", suggestions.added[0].translation)

	adminMsgs := transport.sentTo(testAdminID)
	require.NotEmpty(t, adminMsgs)
	found := false
	for _, m := range adminMsgs {
		if strings.Contains(m.text, "/add splash - плюсь") {
			found = true
		}
	}
	assert.True(t, found, "operator should receive a ready-to-use /add command")

	userMsgs := transport.sentTo(10)
	require.NotEmpty(t, userMsgs)
	assert.Contains(t, userMsgs[len(userMsgs)-1].text, "пропозиція передана")
}

func TestHandlePrivateMessage_LookupFirstMatchWins(t *testing.T) {
	users := newMemUserRepo()
	dict := newMemDictRepo()
	require.NoError(t, dict.Add(context.Background(), "meow", "няв"))
	require.NoError(t, dict.Add(context.Background(), "buzz", "дзиж"))
	transport := newFakeTransport()
	svc := newRelayService(users, dict, &memSuggestionRepo{}, transport)

	svc.HandlePrivateMessage(context.Background(), privateMessage(10, "meow buzz"))

	userMsgs := transport.sentTo(10)
	require.Len(t, userMsgs, 1)
	assert.Equal(t, "🔊 meow → няв", userMsgs[0].text)
	for _, m := range userMsgs {
		assert.NotContains(t, m.text, "дзиж", "only the first match must be reported")
	}
}

func TestHandlePrivateMessage_LookupIsCaseInsensitive(t *testing.T) {
	users := newMemUserRepo()
	dict := newMemDictRepo()
	require.NoError(t, dict.Add(context.Background(), "Buzz", "дзиж"))
	transport := newFakeTransport()
	svc := newRelayService(users, dict, &memSuggestionRepo{}, transport)

	svc.HandlePrivateMessage(context.Background(), privateMessage(10, "BUZZ"))

	userMsgs := transport.sentTo(10)
	require.Len(t, userMsgs, 1)
	assert.Equal(t, "🔊 buzz → дзиж", userMsgs[0].text)
}

func TestHandlePrivateMessage_LookupMirroredIntoThread(t *testing.T) {
	users := newMemUserRepo()
	dict := newMemDictRepo()
	require.NoError(t, dict.Add(context.Background(), "meow", "няв"))
	transport := newFakeTransport()
	svc := newRelayService(users, dict, &memSuggestionRepo{}, transport)

	svc.HandlePrivateMessage(context.Background(), privateMessage(10, "meow"))

	var mirrored bool
	for _, m := range transport.sentTo(testGroupID) {
		if m.threadID == transport.nextTopicID && strings.Contains(m.text, "знайшов переклад") {
			mirrored = true
		}
	}
	assert.True(t, mirrored, "lookup notice should land in the user's thread")
}

func TestHandlePrivateMessage_FallbackTextRelay(t *testing.T) {
	users := newMemUserRepo()
	transport := newFakeTransport()
	svc := newRelayService(users, newMemDictRepo(), &memSuggestionRepo{}, transport)

	svc.HandlePrivateMessage(context.Background(), privateMessage(10, "привіт, є питання"))

	var relayed bool
	for _, m := range transport.sentTo(testGroupID) {
		if m.threadID == transport.nextTopicID && strings.Contains(m.text, "привіт, є питання") {
			relayed = true
		}
	}
	assert.True(t, relayed, "plain text should be relayed into the thread")
}

func TestHandlePrivateMessage_MediaRelayTwoCalls(t *testing.T) {
	users := newMemUserRepo()
	transport := newFakeTransport()
	svc := newRelayService(users, newMemDictRepo(), &memSuggestionRepo{}, transport)

	msg := privateMessage(10, "")
	msg.MessageID = 55
	svc.HandlePrivateMessage(context.Background(), msg)

	require.Len(t, transport.forwards, 1)
	assert.Equal(t, testGroupID, transport.forwards[0].chatID)
	assert.Equal(t, int64(55), transport.forwards[0].messageID)
	assert.Equal(t, transport.nextTopicID, transport.forwards[0].threadID)
}

func TestHandlePrivateMessage_MediaForwardFailureKeepsAnnouncement(t *testing.T) {
	users := newMemUserRepo()
	transport := newFakeTransport()
	transport.failForward = true
	svc := newRelayService(users, newMemDictRepo(), &memSuggestionRepo{}, transport)

	svc.HandlePrivateMessage(context.Background(), privateMessage(10, ""))

	var announced bool
	for _, m := range transport.sentTo(testGroupID) {
		if m.threadID == transport.nextTopicID {
			announced = true
		}
	}
	assert.True(t, announced, "the announcement is not rolled back when the forward fails")
	assert.Empty(t, transport.forwards)
}

func TestHandleOperatorReply_UnmappedThreadDropped(t *testing.T) {
	users := newMemUserRepo()
	transport := newFakeTransport()
	svc := newRelayService(users, newMemDictRepo(), &memSuggestionRepo{}, transport)

	svc.HandleOperatorReply(context.Background(), &tg.Message{
		MessageID:       7,
		From:            &tg.User{ID: testAdminID},
		Chat:            tg.Chat{ID: testGroupID, Type: "supergroup"},
		Text:            "агов?",
		MessageThreadID: 9999,
	})

	assert.Empty(t, transport.sent)
	assert.Empty(t, transport.forwards)
}

func TestHandleOperatorReply_TextDelivered(t *testing.T) {
	users := newMemUserRepo()
	transport := newFakeTransport()
	svc := newRelayService(users, newMemDictRepo(), &memSuggestionRepo{}, transport)

	// First contact creates the thread mapping.
	svc.HandlePrivateMessage(context.Background(), privateMessage(10, "привіт"))
	transport.sent = nil

	svc.HandleOperatorReply(context.Background(), &tg.Message{
		MessageID:       8,
		From:            &tg.User{ID: testAdminID},
		Chat:            tg.Chat{ID: testGroupID, Type: "supergroup"},
		Text:            "добрий день",
		MessageThreadID: transport.nextTopicID,
	})

	userMsgs := transport.sentTo(10)
	require.Len(t, userMsgs, 1)
	assert.Contains(t, userMsgs[0].text, "добрий день")
	assert.Contains(t, userMsgs[0].text, "Відповідь від адміністратора")

	var confirmed bool
	for _, m := range transport.sentTo(testGroupID) {
		if m.threadID == transport.nextTopicID && strings.Contains(m.text, "надіслано") {
			confirmed = true
		}
	}
	assert.True(t, confirmed, "delivery confirmation should land in the thread")
}

func TestHandleOperatorReply_FailureReportedInThread(t *testing.T) {
	users := newMemUserRepo()
	transport := newFakeTransport()
	svc := newRelayService(users, newMemDictRepo(), &memSuggestionRepo{}, transport)

	svc.HandlePrivateMessage(context.Background(), privateMessage(10, "привіт"))
	transport.sent = nil
	transport.failSendTo[10] = true

	svc.HandleOperatorReply(context.Background(), &tg.Message{
		MessageID:       9,
		From:            &tg.User{ID: testAdminID},
		Chat:            tg.Chat{ID: testGroupID, Type: "supergroup"},
		Text:            "добрий день",
		MessageThreadID: transport.nextTopicID,
	})

	var reported bool
	for _, m := range transport.sentTo(testGroupID) {
		if m.threadID == transport.nextTopicID && strings.Contains(m.text, "Помилка надсилання") {
			reported = true
		}
	}
	assert.True(t, reported, "the operator must be told about the delivery failure")
}

func TestEnsureUser_PreservesBanAcrossReRegistration(t *testing.T) {
	users := newMemUserRepo()
	transport := newFakeTransport()
	svc := newRelayService(users, newMemDictRepo(), &memSuggestionRepo{}, transport)

	svc.HandlePrivateMessage(context.Background(), privateMessage(10, "привіт"))
	ok, err := users.SetBanned(context.Background(), 10, true)
	require.NoError(t, err)
	require.True(t, ok)

	// Same id, different display name.
	msg := privateMessage(10, "ще раз привіт")
	msg.From.FirstName = "Оксана"
	u := svc.ensureUser(context.Background(), msg)

	require.NotNil(t, u)
	assert.Equal(t, "Оксана", u.FirstName)
	assert.True(t, u.IsBanned, "re-registration must not reset ban state")
}
