package http

// dashboardHTML is the single-page dashboard served at /. It polls the
// JSON API; no server-side templating.
const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>queuectl</title>
<style>
body { font-family: ui-monospace, monospace; margin: 2rem; background: #fafafa; }
h1 { font-size: 1.2rem; }
table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
th, td { text-align: left; padding: 0.3rem 0.8rem; border-bottom: 1px solid #ddd; }
.stats span { display: inline-block; margin-right: 1.5rem; }
.state-dead { color: #b00; }
.state-completed { color: #080; }
.state-processing { color: #06c; }
</style>
</head>
<body>
<h1>queuectl dashboard</h1>
<div class="stats" id="stats"></div>
<table>
<thead><tr><th>ID</th><th>Command</th><th>State</th><th>Attempts</th><th>Last error</th></tr></thead>
<tbody id="jobs"></tbody>
</table>
<script>
async function refresh() {
  const status = await (await fetch('/api/status')).json();
  const parts = ['workers: ' + status.active_workers, 'total: ' + status.total];
  for (const [state, n] of Object.entries(status.stats)) parts.push(state + ': ' + n);
  document.getElementById('stats').innerHTML =
    parts.map(p => '<span>' + p + '</span>').join('');

  const data = await (await fetch('/api/jobs?limit=50')).json();
  document.getElementById('jobs').innerHTML = data.jobs.map(j =>
    '<tr><td>' + j.id + '</td><td>' + j.command + '</td>' +
    '<td class="state-' + j.state + '">' + j.state + '</td>' +
    '<td>' + j.attempts + '/' + j.max_retries + '</td>' +
    '<td>' + (j.last_error || '') + '</td></tr>').join('');
}
refresh();
setInterval(refresh, 2000);
</script>
</body>
</html>
`
