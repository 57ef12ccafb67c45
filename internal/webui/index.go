package webui

const defaultIndexHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>promptdeck</title>
  <style>
    body { font-family: "Segoe UI", sans-serif; margin: 0; background: linear-gradient(145deg,#f7fafc,#e9eef7); color: #1f2937; }
    .wrap { max-width: 1100px; margin: 0 auto; padding: 20px; display: grid; grid-template-columns: 2fr 1fr; gap: 16px; }
    .panel { background: #fff; border-radius: 12px; box-shadow: 0 8px 30px rgba(15,23,42,.08); padding: 16px; }
    textarea, #display { width: 100%; box-sizing: border-box; min-height: 220px; padding: 10px; border: 1px solid #cbd5e1; border-radius: 8px; font: inherit; white-space: pre-wrap; }
    #display { background: #f9fafb; display: none; }
    #display u { text-decoration-color: #0f766e; }
    #input { min-height: 90px; }
    #output { white-space: pre-wrap; min-height: 80px; border: 1px solid #d1d5db; border-radius: 8px; padding: 10px; background: #f9fafb; }
    .row { display: flex; gap: 8px; margin: 10px 0; align-items: center; flex-wrap: wrap; }
    .field { border-bottom: 1px solid #e5e7eb; padding: 8px 0; }
    .badge { font-size: 12px; background: #e0f2f1; color: #0f766e; border-radius: 6px; padding: 2px 8px; }
    button { padding: 8px 14px; border: 0; border-radius: 8px; background: #0f766e; color: #fff; cursor: pointer; }
    button:hover { background: #0d9488; }
    input[type=text], select { padding: 6px; border: 1px solid #cbd5e1; border-radius: 6px; }
  </style>
</head>
<body>
  <div class="wrap">
    <div class="panel">
      <div class="row">
        <h2 style="margin:0">Prompt</h2>
        <button id="toggle">Unfold</button>
        <span class="badge" id="words">0 words</span>
        <span class="badge" id="round">ROUND 0/5</span>
      </div>
      <textarea id="template" placeholder="Write a template, e.g. I am {{place}}. {{input_box}}"></textarea>
      <div id="display"></div>
      <h3>Input</h3>
      <textarea id="input"></textarea>
      <div class="row">
        <button id="run">Run</button>
        <button id="cancel">Cancel</button>
        <label><input type="checkbox" id="multi" /> multi-round</label>
        <button id="reset">Reset history</button>
      </div>
      <div id="output"></div>
    </div>
    <div class="panel">
      <h3>Fields</h3>
      <div id="fields"></div>
    </div>
  </div>
  <script>
    const $ = (id) => document.getElementById(id);
    const api = async (method, path, body) => {
      const resp = await fetch('/api' + path, { method, headers: {'Content-Type':'application/json'}, body: body === undefined ? undefined : JSON.stringify(body) });
      if (resp.status === 204) return null;
      return resp.json();
    };
    function showView(v) {
      $('words').textContent = v.word_count + ' words';
      $('toggle').textContent = v.mode === 'fold' ? 'Unfold' : 'Fold';
      if (v.mode === 'fold') {
        $('template').style.display = 'block'; $('display').style.display = 'none';
        if (document.activeElement !== $('template')) $('template').value = v.display;
      } else {
        $('template').style.display = 'none'; $('display').style.display = 'block';
        $('display').innerHTML = v.display_html || '';
      }
    }
    async function refreshHistory() {
      const h = await api('GET', '/history');
      $('round').textContent = h.indicator;
      $('multi').checked = h.state.multi_round_enabled;
    }
    async function renderFields() {
      const list = await api('GET', '/fields');
      const box = $('fields'); box.innerHTML = '';
      list.forEach((f) => {
        const row = document.createElement('div'); row.className = 'field';
        const on = document.createElement('input'); on.type = 'checkbox'; on.checked = f.enabled;
        on.onchange = async () => { const r = await api('PUT', '/fields/' + f.name + '/enabled', {enabled: on.checked}); showView(r.view); };
        const ins = document.createElement('button'); ins.textContent = '{{' + f.name + '}}';
        ins.onclick = async () => showView(await api('POST', '/prompt/insert', {name: f.name, pos: $('template').selectionStart}));
        row.append(on, ' ', ins, ' ');
        if (f.type === 'selection') {
          const sel = document.createElement('select');
          (f.options || []).forEach((o) => { const opt = document.createElement('option'); opt.value = o; opt.textContent = o; opt.selected = o === f.state; sel.append(opt); });
          sel.onchange = async () => { const r = await api('PUT', '/fields/' + f.name + '/value', {value: sel.value}); showView(r.view); };
          row.append(sel);
        } else if (f.type === 'input') {
          const txt = document.createElement('input'); txt.type = 'text'; txt.value = f.state || '';
          txt.onchange = async () => { const r = await api('PUT', '/fields/' + f.name + '/value', {value: txt.value}); showView(r.view); };
          row.append(txt);
        } else {
          row.append(document.createTextNode('image'));
        }
        box.append(row);
      });
    }
    $('template').addEventListener('input', async () => showView(await api('PUT', '/prompt', {text: $('template').value, pos: $('template').selectionStart})));
    $('input').addEventListener('change', async () => showView(await api('PUT', '/input', {text: $('input').value})));
    $('toggle').onclick = async () => showView(await api('POST', '/prompt/toggle'));
    $('multi').onchange = async () => { await api('POST', $('multi').checked ? '/history/enable' : '/history/disable', {max_rounds: 0}); refreshHistory(); showView(await api('GET', '/prompt')); };
    $('reset').onclick = async () => { await api('POST', '/history/reset'); refreshHistory(); };
    $('cancel').onclick = () => api('POST', '/run/cancel');
    $('run').onclick = async () => {
      await api('PUT', '/input', {text: $('input').value});
      $('output').textContent = 'Running...';
      const r = await api('POST', '/run');
      $('output').textContent = r.output || r.error || '(empty)';
      refreshHistory();
      showView(await api('GET', '/prompt'));
    };
    (async () => {
      showView(await api('GET', '/prompt'));
      $('input').value = (await api('GET', '/input')).text;
      renderFields(); refreshHistory();
    })();
  </script>
</body>
</html>`
