package testutil

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/avelar/confidant/credstore"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

func AcquireWritableStore(ctx context.Context, t TestLog, name string) (*credstore.Store, func()) {
	dir, err := ioutil.TempDir("", "confidant-tests")
	if err != nil {
		t.Fatal(err)
	}
	abspath := filepath.Join(dir, name)
	store, err := credstore.Open(ctx, abspath, true)
	if err != nil {
		t.Fatal(err)
	}
	return store, func() {
		err := store.Close()
		if err != nil {
			t.Log("unable to close account store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}
