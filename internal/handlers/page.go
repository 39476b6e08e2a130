package handlers

import "net/http"

// indexHTML is a minimal built-in console for exercising the websocket
// protocol by hand.
const indexHTML = `<!DOCTYPE html>
<html>
    <head>
        <title>remixd</title>
    </head>
    <body>
        <h1>remixd console</h1>
        <form action="" onsubmit="sendInit(event)">
            <input type="text" id="identifier" placeholder="YouTube URL or id" autocomplete="off"/>
            <input type="text" id="variant" placeholder="variant (e.g. slowed_reverb_low)" autocomplete="off"/>
            <button>INIT</button>
        </form>
        <ul id="messages"></ul>
        <script>
            var ws = new WebSocket("ws://" + location.host + "/ws");
            ws.onmessage = function(event) {
                var li = document.createElement("li");
                li.appendChild(document.createTextNode(event.data));
                document.getElementById("messages").appendChild(li);
            };
            function sendInit(event) {
                event.preventDefault();
                ws.send(JSON.stringify({
                    op: "INIT",
                    data: {
                        identifier: document.getElementById("identifier").value,
                        variant: document.getElementById("variant").value
                    }
                }));
            }
        </script>
    </body>
</html>
`

// PageHandler serves the built-in pages.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// IndexHandler serves the test console at /.
func (h *PageHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}
