package server

import (
	"html/template"
	"net/http"

	"github.com/supporttools/kube-probe-demo/pkg/discovery"
	"github.com/supporttools/kube-probe-demo/pkg/logger"
)

// view carries everything the HTML pages can render. Handlers fill in the
// fields they need and leave the rest zero.
type view struct {
	PodName   string
	Namespace string
	NodeName  string
	Hostname  string
	IP        string
	Version   string
	Uptime    string
	Service   string

	Status string
	OK     bool
	Detail string

	Peers    []discovery.Peer
	PeerPort int

	Env []EnvVar

	Healthy bool
	Ready   bool
	Started bool

	Duration            string
	StartupDelaySeconds int
	Timestamp           string
}

// render writes one of the named page templates with the given status code.
func render(w http.ResponseWriter, code int, page string, v view) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pages.ExecuteTemplate(w, page, v); err != nil {
		logger.WithError(err).Error("failed to render page template")
	}
}

var pages = template.Must(template.New("pages").Parse(pagesHTML))

const pagesHTML = `
{{define "style"}}<style>
  body { font-family: 'Segoe UI', system-ui, sans-serif; background: #0d1117;
         color: #c9d1d9; max-width: 900px; margin: 2rem auto; padding: 0 1rem; }
  h1, h2 { color: #58a6ff; }
  code, pre { background: #161b22; padding: 2px 6px; border-radius: 6px;
              font-size: 0.95em; color: #7ee787; }
  pre { padding: 1rem; overflow-x: auto; }
  .card { background: #161b22; border: 1px solid #30363d; border-radius: 8px;
          padding: 1.25rem; margin: 1rem 0; }
  .ok { color: #3fb950; font-weight: bold; }
  .fail { color: #f85149; font-weight: bold; }
  a { color: #58a6ff; }
  table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
  th, td { border: 1px solid #30363d; padding: 0.5rem 0.75rem; text-align: left; }
  th { background: #161b22; }
  .tag { display: inline-block; background: #1f6feb; color: #fff;
         padding: 2px 8px; border-radius: 12px; font-size: 0.8em; margin: 0 2px; }
</style>{{end}}

{{define "peers"}}
{{if not .Peers}}
<div class="card">
  <h2>Peer Pods</h2>
  <p><em>Peer discovery unavailable &mdash; RBAC or cluster DNS not configured.</em></p>
  <pre>
# Apply RBAC to enable API-based peer discovery:
kubectl apply -f k8s/rbac.yaml
  </pre>
</div>
{{else}}
<div class="card">
  <h2>Peer Pods ({{len .Peers}} replicas)</h2>
  <p>Live snapshot of the sibling pods of this Deployment. Entries come from
     the Kubernetes API when RBAC allows it, otherwise from headless Service DNS.</p>
  <table>
    <tr><th>Pod Name</th><th>IP</th><th>Node</th><th>Status</th><th>Restarts</th><th>Endpoints</th></tr>
    {{$port := .PeerPort}}
    {{range .Peers}}<tr>
      <td><code>{{.Name}}</code>{{if .IsSelf}} <span class="tag">&larr; YOU</span>{{end}}</td>
      <td><code>{{.IP}}</code></td>
      <td><code>{{.Node}}</code></td>
      <td>{{if .Ready}}<span class="ok">&#10003;</span>{{else}}<span class="fail">&#10007;</span>{{end}} {{.Phase}}</td>
      <td>{{.Restarts}}</td>
      <td style="font-size:0.85em">
        <a href="http://{{.IP}}:{{$port}}/">home</a> &middot;
        <a href="http://{{.IP}}:{{$port}}/info">info</a> &middot;
        <a href="http://{{.IP}}:{{$port}}/healthz">healthz</a> &middot;
        <a href="http://{{.IP}}:{{$port}}/ready">ready</a>
      </td>
    </tr>{{end}}
  </table>
  <p style="font-size:0.85em; color:#8b949e">
    Pod-IP links only work from inside the cluster. From a local terminal use
    <code>kubectl port-forward pod/&lt;name&gt; -n {{.Namespace}} 8080:{{.PeerPort}}</code>.
  </p>
</div>
{{end}}
{{end}}

{{define "liveness"}}{{template "style" .}}
{{if .OK}}
<h1>Liveness Probe &mdash; <code>/healthz</code></h1>
<div class="card">
  <h2>Status: <span class="ok">{{.Status}}</span></h2>
  <p><strong>Pod:</strong> <code>{{.PodName}}</code></p>
  <p><strong>Uptime:</strong> {{.Uptime}}</p>
</div>
<div class="card">
  <h2>How This Works</h2>
  <p>Kubernetes sends <code>GET /healthz</code> every <code>periodSeconds</code>.
     A 2xx response means the container is alive. After
     <code>failureThreshold</code> consecutive failures Kubernetes kills and
     restarts the container.</p>
  <pre>
kubectl port-forward pod/{{.PodName}} -n {{.Namespace}} 8080:{{.PeerPort}} &amp;
curl -s localhost:8080/healthz
kubectl get pods -n {{.Namespace}} -w
  </pre>
</div>
{{else}}
<h1 class="fail">{{.Status}}</h1>
<p>Pod <code>{{.PodName}}</code> is reporting unhealthy.
   Kubernetes will restart this container.</p>
{{end}}
{{end}}

{{define "readiness"}}{{template "style" .}}
{{if .OK}}
<h1>Readiness Probe &mdash; <code>/ready</code></h1>
<div class="card">
  <h2>Status: <span class="ok">{{.Status}}</span></h2>
  <p><strong>Pod:</strong> <code>{{.PodName}}</code></p>
  <p><strong>Serving traffic:</strong> Yes</p>
</div>
<div class="card">
  <h2>How This Works</h2>
  <p>A 2xx keeps this pod in the Service endpoints. A failure removes it from
     traffic routing without restarting it &mdash; that is the key difference from
     the liveness probe. This pod simulates a
     {{.StartupDelaySeconds}}s startup delay via <code>STARTUP_DELAY</code>.</p>
  <pre>
kubectl get endpoints {{.Service}} -n {{.Namespace}} -w
  </pre>
</div>
{{else}}
<h1>Not Ready Yet</h1>
<p>{{.Detail}}</p>
<p>Pod <code>{{.PodName}}</code> will NOT receive traffic until ready.</p>
{{end}}
{{end}}

{{define "startup"}}{{template "style" .}}
{{if .OK}}
<h1>Startup Probe &mdash; <code>/startup</code></h1>
<div class="card">
  <h2>Status: <span class="ok">{{.Status}}</span></h2>
  <p>The application has finished initializing.</p>
  <p>Liveness and readiness probes are now active.</p>
</div>
<div class="card">
  <h2>How This Works</h2>
  <p>The startup probe runs first and blocks liveness/readiness probes until
     it passes. Once it passes, it never runs again for the lifetime of
     the container.</p>
</div>
{{else}}
<h1>Starting up...</h1>
<p>{{.Detail}}</p>
{{end}}
{{end}}

{{define "index"}}{{template "style" .}}
<h1>Kubernetes Probe Demo</h1>
<div class="card">
  <p><strong>Pod:</strong> <code>{{.PodName}}</code></p>
  <p><strong>Node:</strong> <code>{{.NodeName}}</code></p>
  <p><strong>Namespace:</strong> <code>{{.Namespace}}</code></p>
  <p><strong>Version:</strong> <code>{{.Version}}</code></p>
  <p><strong>Uptime:</strong> {{.Uptime}}</p>
  <p><strong>Hostname:</strong> <code>{{.Hostname}}</code></p>
  <p><strong>IP:</strong> <code>{{.IP}}</code></p>
</div>
{{template "peers" .}}
<h2>Probe Endpoints</h2>
<table>
  <tr><th>Endpoint</th><th>Probe Type</th><th>Purpose</th></tr>
  <tr><td><a href="/healthz">/healthz</a></td><td><span class="tag">Liveness</span></td>
      <td>Is the container alive? Failure &rarr; restart</td></tr>
  <tr><td><a href="/ready">/ready</a></td><td><span class="tag">Readiness</span></td>
      <td>Can this pod serve traffic? Failure &rarr; remove from Service</td></tr>
  <tr><td><a href="/startup">/startup</a></td><td><span class="tag">Startup</span></td>
      <td>Has the app finished initializing?</td></tr>
</table>
<h2>Operational Endpoints</h2>
<table>
  <tr><th>Endpoint</th><th>Purpose</th></tr>
  <tr><td><a href="/info">/info</a></td><td>Pod metadata, env, and cluster context</td></tr>
  <tr><td><a href="/toggle-health">/toggle-health</a></td><td>Flip liveness on/off &mdash; triggers restart</td></tr>
  <tr><td><a href="/toggle-ready">/toggle-ready</a></td><td>Flip readiness on/off &mdash; removes from Service</td></tr>
  <tr><td><a href="/stress">/stress</a></td><td>Simulate CPU load for resource monitoring</td></tr>
  <tr><td><a href="/metrics">/metrics</a></td><td>Prometheus metrics</td></tr>
</table>
<h2>Quick kubectl Cheat Sheet</h2>
<pre>
kubectl get pods -n {{.Namespace}} -o wide
kubectl get pods -n {{.Namespace}} -w
kubectl describe pod {{.PodName}} -n {{.Namespace}}
kubectl get endpoints {{.Service}} -n {{.Namespace}}
kubectl logs {{.PodName}} -n {{.Namespace}}
kubectl port-forward pod/{{.PodName}} -n {{.Namespace}} 8080:{{.PeerPort}}
</pre>
{{end}}

{{define "info"}}{{template "style" .}}
<h1>Pod Info &mdash; <code>{{.PodName}}</code></h1>
<div class="card">
  <h2>Container Details</h2>
  <table>
    <tr><td><strong>Pod Name</strong></td><td><code>{{.PodName}}</code></td></tr>
    <tr><td><strong>Namespace</strong></td><td><code>{{.Namespace}}</code></td></tr>
    <tr><td><strong>Node</strong></td><td><code>{{.NodeName}}</code></td></tr>
    <tr><td><strong>Hostname</strong></td><td><code>{{.Hostname}}</code></td></tr>
    <tr><td><strong>IP Address</strong></td><td><code>{{.IP}}</code></td></tr>
    <tr><td><strong>Uptime</strong></td><td>{{.Uptime}}</td></tr>
    <tr><td><strong>Healthy</strong></td><td>{{if .Healthy}}<span class="ok">Yes</span>{{else}}<span class="fail">No</span>{{end}}</td></tr>
    <tr><td><strong>Ready</strong></td><td>{{if .Ready}}<span class="ok">Yes</span>{{else}}<span class="fail">No</span>{{end}}</td></tr>
    <tr><td><strong>Version</strong></td><td><code>{{.Version}}</code></td></tr>
    <tr><td><strong>Time</strong></td><td>{{.Timestamp}}</td></tr>
  </table>
</div>
{{template "peers" .}}
<div class="card">
  <h2>Environment Variables</h2>
  <table>
    <tr><th>Variable</th><th>Value</th></tr>
    {{range .Env}}<tr><td><code>{{.Name}}</code></td><td><code>{{.Value}}</code></td></tr>{{end}}
  </table>
</div>
{{end}}

{{define "toggle-health"}}{{template "style" .}}
<h1>Health Toggled</h1>
<div class="card">
  <h2>Liveness is now: <span class="{{if .Healthy}}ok{{else}}fail{{end}}">{{.Status}}</span></h2>
  <p><strong>Pod:</strong> <code>{{.PodName}}</code></p>
  {{if .Healthy}}
  <p>The liveness probe is passing again.</p>
  {{else}}
  <p>The liveness probe at <code>/healthz</code> will now return <strong>503</strong>.
     Kubernetes will restart this container after <code>failureThreshold</code>
     consecutive failures. Only this replica is affected &mdash; the flag lives
     in this process's memory.</p>
  {{end}}
</div>
<div class="card">
  <h2>Watch It Happen</h2>
  <pre>
kubectl get pods -n {{.Namespace}} -w
kubectl describe pod {{.PodName}} -n {{.Namespace}} | tail -20
  </pre>
</div>
<p><a href="/toggle-health">Toggle again</a> | <a href="/">Home</a></p>
{{end}}

{{define "toggle-ready"}}{{template "style" .}}
<h1>Readiness Toggled</h1>
<div class="card">
  <h2>Readiness is now: <span class="{{if .Ready}}ok{{else}}fail{{end}}">{{.Status}}</span></h2>
  <p><strong>Pod:</strong> <code>{{.PodName}}</code></p>
  {{if .Ready}}
  <p>The pod is ready and will receive traffic again after
     <code>successThreshold</code> consecutive passing checks.</p>
  {{else}}
  <p>The readiness probe at <code>/ready</code> will now return <strong>503</strong>.
     This pod will be removed from the Service endpoints &mdash; no traffic is
     routed here, but the pod is NOT restarted.</p>
  {{end}}
</div>
<div class="card">
  <h2>Watch It Happen</h2>
  <pre>
kubectl get endpoints {{.Service}} -n {{.Namespace}} -w
kubectl get pods -n {{.Namespace}} -w
  </pre>
</div>
<p><a href="/toggle-ready">Toggle again</a> | <a href="/">Home</a></p>
{{end}}

{{define "stress"}}{{template "style" .}}
<h1>Stress Test Complete</h1>
<div class="card">
  <p><strong>Pod:</strong> <code>{{.PodName}}</code></p>
  <p><strong>Duration:</strong> {{.Duration}} of CPU burn</p>
</div>
<div class="card">
  <h2>Why This Exists</h2>
  <p>Use this to observe CPU usage with <code>kubectl top</code> or to trigger
     Horizontal Pod Autoscaler scaling when resource requests are set.</p>
  <pre>
kubectl top pods -n {{.Namespace}}
kubectl get hpa -n {{.Namespace}}
  </pre>
</div>
<p><a href="/stress">Run again</a> | <a href="/">Home</a></p>
{{end}}
`
