package telnet

import (
	"testing"

	config "github.com/pcxt/pcxt/config/configparser"
)

func TestCreateSerialBindsPortFromAddrOption(t *testing.T) {
	opts := []config.Option{{Name: "addr", EqualOpt: "127.0.0.1:0"}}
	if err := createSerial(1, "1", opts); err != nil {
		t.Fatalf("createSerial: %v", err)
	}
	b, ok := Bound[1]
	if !ok {
		t.Fatal("createSerial did not record a bridge for port 1")
	}
	b.Close()
	delete(Bound, 1)
}

func TestCreateSerialRejectsMissingAddr(t *testing.T) {
	if err := createSerial(0, "0", nil); err == nil {
		t.Error("createSerial should require an addr= option")
	}
}

func TestCreateSerialRejectsOutOfRangePort(t *testing.T) {
	opts := []config.Option{{Name: "addr", EqualOpt: "127.0.0.1:0"}}
	if err := createSerial(4, "4", opts); err == nil {
		t.Error("createSerial should reject a port number above 3")
	}
}
