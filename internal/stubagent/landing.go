package stubagent

// landingPage is served at the stub's root. It exists so the harness smoke
// test has a stable navigation target with a recognizable title.
const landingPage = `<!DOCTYPE html>
<html>
<head>
    <title>Voice Agent Stub</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            max-width: 600px;
            margin: 50px auto;
            padding: 20px;
        }
        code { background: #f0f0f0; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>Voice Agent Stub</h1>
    <p>Local stand-in for the voice-agent backend.</p>
    <p>WebSocket endpoint: <code>/agent</code> &middot; Health: <code>/healthz</code></p>
</body>
</html>
`
