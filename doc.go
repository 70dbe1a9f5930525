// Package matrixrelay, tarayıcıdaki controller'lar ile LED matris cihazları
// arasında çalışan bir WebSocket relay'idir.
//
// # Genel Bakış
//
// Controller bir render komutu gönderir; relay metni sunucu tarafında çizer,
// RGB565'e çevirir, sabit genişlikte segmentlere böler ve bağlı tüm cihazlara
// sırayla iletir. Her adım controller'lara status mesajı olarak bildirilir.
//
//	controller ──JSON──▶ Dispatcher ──▶ Renderer ──▶ Segmenter ──SG paketleri──▶ cihazlar
//	                         │
//	                         └──status──▶ controller'lar (+ isteğe bağlı MQTT)
//
// # Roller
//
// Yeni bağlantılar hello göndermeyen eski cihaz yazılımlarıyla uyum için
// cihaz olarak kaydedilir:
//
//	{"type":"hello","role":"controller"}
//	{"type":"hello","role":"device"}
//
// # Render Komutu
//
//	{
//	  "type": "command",
//	  "action": "render_and_send",
//	  "text": "Merhaba សួស្តី",
//	  "height": 32,
//	  "font_family": "Go",
//	  "font_size_pt": 22,
//	  "fg_color": "#ff0000",
//	  "fg_color2": [0, 0, 255],
//	  "use_gradient": true,
//	  "gradient_dir": "horizontal"
//	}
//
// Metin yazı sistemlerine göre parçalara ayrılır; Khmer parçaları Khmer
// fontuyla, geri kalanı Latin fontuyla çizilir. Font bulunamazsa bir uyarı
// yayınlanır ve varsayılan fonta düşülür.
//
// # Segment Paketi
//
//	offset  boyut  alan
//	0       2      "SG"
//	2       2      toplam genişlik (LE)
//	4       2      yükseklik (LE)
//	6       2      x başlangıcı (LE)
//	8       2      segment genişliği (LE)
//	10      w*h*2  RGB565 pikseller, satır öncelikli (LE)
//
// Controller önceden kodlanmış bir çerçeveyi binary mesaj olarak da
// gönderebilir: [genişlik LE16][yükseklik LE16][pikseller]. Bu çerçeve render
// adımı atlanarak segmentlenir.
//
// # Hızlı Başlangıç
//
//	srv, err := matrixrelay.NewServer(":9122",
//	    matrixrelay.WithLogger(log.Default()),
//	    matrixrelay.WithPacing(25*time.Millisecond),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go srv.ListenAndServe()
//	defer srv.Shutdown(context.Background())
//
// cmd/matrixrelayd YAML yapılandırmasıyla çalışan servis, cmd/matrixsim ise
// gelen çerçeveleri PNG olarak kaydeden bir cihaz simülatörüdür.
package matrixrelay
