// Package testing provides a scriptable host for exercising permission
// requests without a device.
//
// # Quick Start
//
// Seed the host state, start a request, then answer the prompt it opened:
//
//	func TestCameraRequest(t *testing.T) {
//	    table := consent.NewTable(nil)
//	    host := permtest.NewFakeHost(table)
//	    d := dispatcher.New(consent.NewChannel(host, table, nil), dispatcher.Config{})
//
//	    set, _ := capability.Ordinary(capability.Camera)
//	    granted := false
//	    d.Start(context.Background(), set, dispatcher.Callbacks{
//	        OnGranted: func() { granted = true },
//	    })
//
//	    host.Answer(host.LastToken(), map[capability.Capability]bool{
//	        capability.Camera: true,
//	    })
//	    if !granted {
//	        t.Error("expected camera action to run")
//	    }
//	}
//
// # Out-of-order delivery
//
// Enqueue holds results per token and Flush delivers them newest first, which
// exercises token correlation across concurrent requests.
package testing
