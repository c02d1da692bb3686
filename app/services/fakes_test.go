package services_test

import (
	"context"
	"sync"

	"github.com/humanebio/storefront/pkg/llm"
	"github.com/humanebio/storefront/pkg/oauth"
	"github.com/humanebio/storefront/pkg/payment"
)

var ctx = context.Background()

type fakePayments struct {
	mu       sync.Mutex
	requests []payment.SessionRequest
	details  map[string]*payment.SessionDetails
	err      error
}

func (f *fakePayments) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Session{ID: "cs_test_1", URL: "https://pay.example.com/cs_test_1"}, nil
}

func (f *fakePayments) RetrieveSession(_ context.Context, id string) (*payment.SessionDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[id]
	if !ok {
		return nil, f.err
	}
	return d, nil
}

type fakeLLM struct {
	reply string
	err   error
	got   []llm.Request
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.got = append(f.got, req)
	return f.reply, f.err
}

type fakeIdP struct {
	profile *oauth.Profile
	err     error
}

func (f fakeIdP) Exchange(context.Context, string, string) (*oauth.Profile, error) {
	return f.profile, f.err
}

type memDisk struct {
	files map[string][]byte
	err   error
}

func (d *memDisk) Put(_ context.Context, key string, content []byte, _ string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	if d.files == nil {
		d.files = map[string][]byte{}
	}
	d.files[key] = content
	return d.URL(key), nil
}

func (d *memDisk) Exists(_ context.Context, key string) (bool, error) {
	_, ok := d.files[key]
	return ok, nil
}

func (d *memDisk) Delete(_ context.Context, key string) error {
	delete(d.files, key)
	return nil
}

func (d *memDisk) URL(key string) string { return "https://cdn.example.com/" + key }
