package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCleanup_ClosesArchiveBeforeStore(t *testing.T) {
	var callOrder []string

	closeArchive := func() error {
		callOrder = append(callOrder, "archiveClose")
		return nil
	}
	store := &fakeStore{calls: &callOrder}

	newCleanup(closeArchive, store)()

	require.Equal(t, []string{"archiveClose", "storeClose"}, callOrder)
}

func TestNewCleanup_ClosesStoreWhenArchiveFails(t *testing.T) {
	var callOrder []string

	closeArchive := func() error {
		callOrder = append(callOrder, "archiveClose")
		return errors.New("bucket gone")
	}
	store := &fakeStore{calls: &callOrder}

	newCleanup(closeArchive, store)()

	require.Equal(t, []string{"archiveClose", "storeClose"}, callOrder)
}

func TestNewCleanup_ToleratesNil(t *testing.T) {
	require.NotPanics(t, func() { newCleanup(nil, nil)() })
}

type fakeStore struct {
	calls *[]string
}

func (s *fakeStore) Close() error {
	*s.calls = append(*s.calls, "storeClose")
	return nil
}
