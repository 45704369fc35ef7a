// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"testing"
	"time"

	"github.com/oneagent-dev/oneagent/pkg/backbone"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, idleTimeout time.Duration) (*Manager, *backbone.Backbone) {
	t.Helper()
	bb := backbone.New()
	t.Cleanup(func() { bb.Close() })
	storage := NewCacheStorage(bb.Cache())
	events := NewCacheEventLog(bb.Cache(), bb, bb.NewID, 1000)
	mgr := NewManager(storage, events, bb, nil, Config{IdleTimeout: idleTimeout})
	return mgr, bb
}

func TestCreateAndGet(t *testing.T) {
	mgr, _ := newTestManager(t, 30*time.Minute)
	id, expiresAt, err := mgr.Create("client-1", "http://localhost:3000", "2025-06-18", nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.True(t, expiresAt.After(time.Now()))

	got, err := mgr.Get(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, StateActive, got.State)
}

func TestGetExpiresLazily(t *testing.T) {
	clk := &manualClock{at: time.Now()}
	bb := backbone.New(backbone.WithClock(clk))
	defer bb.Close()
	storage := NewCacheStorage(bb.Cache())
	events := NewCacheEventLog(bb.Cache(), bb, bb.NewID, 1000)
	mgr := NewManager(storage, events, bb, nil, Config{IdleTimeout: time.Minute})

	id, _, err := mgr.Create("c", "o", "2025-06-18", nil, nil)
	require.NoError(t, err)

	clk.at = clk.at.Add(2 * time.Minute)

	got, err := mgr.Get(id)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTerminateClearsEvents(t *testing.T) {
	mgr, _ := newTestManager(t, 30*time.Minute)
	id, _, err := mgr.Create("c", "o", "2025-06-18", nil, nil)
	require.NoError(t, err)

	_, err = mgr.AddEvent(id, "s1", []byte(`{}`), EventMessage)
	require.NoError(t, err)

	require.NoError(t, mgr.Terminate(id))

	got, err := mgr.Get(id)
	require.NoError(t, err)
	require.Nil(t, got)

	replay, err := mgr.ReplayEvents(id, "s1", "")
	require.NoError(t, err)
	require.Empty(t, replay.Events)
}

func TestEventSequenceMonotonic(t *testing.T) {
	mgr, _ := newTestManager(t, 30*time.Minute)
	id, _, err := mgr.Create("c", "o", "2025-06-18", nil, nil)
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 5; i++ {
		eid, err := mgr.AddEvent(id, "s1", []byte(`{"n":1}`), EventMessage)
		require.NoError(t, err)
		ids = append(ids, eid)
	}

	replay, err := mgr.ReplayEvents(id, "s1", "")
	require.NoError(t, err)
	require.Len(t, replay.Events, 5)
	for i, ev := range replay.Events {
		require.EqualValues(t, i, ev.Sequence)
	}

	replay2, err := mgr.ReplayEvents(id, "s1", ids[2])
	require.NoError(t, err)
	require.Len(t, replay2.Events, 2)
}

func TestMaskID(t *testing.T) {
	require.Equal(t, "abcd1234…", maskID("abcd1234-5678-90ab-cdef-1234567890ab"))
	require.Equal(t, "short", maskID("short"))
}

type manualClock struct{ at time.Time }

func (c *manualClock) Now() time.Time { return c.at }
