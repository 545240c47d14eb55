package swagger

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

type SwaggerConfig struct {
	Title         string
	SwaggerDocURL string
	AuthURL       string
}

// The UI embeds a login form in the Authorize dialog so testers can get a
// bearer token straight from the login endpoint instead of pasting one in.
const swaggerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Title}}</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui.css" />
  <style>
    html {
      box-sizing: border-box;
      overflow-y: scroll;
    }
    *, *:before, *:after {
      box-sizing: inherit;
    }
    body {
      margin: 0;
      background: #fafafa;
    }

    .custom-auth-container {
      margin-bottom: 20px;
    }

    .custom-auth-container h4,
    .custom-auth-container label {
      color: #3b4151;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      font-weight: 600;
      margin: 0 0 5px;
    }

    .custom-auth-container .auth-btn-wrapper {
      margin-bottom: 15px;
    }

    .custom-auth-container input {
      border: 2px solid #3b82f6;
      border-radius: 4px;
      color: #3b4151;
      font-size: 14px;
      padding: 8px 12px;
      width: 100%;
      max-width: 450px;
    }

    .custom-auth-container .btn.authorize {
      background: #4990e2;
      border: 1px solid #4990e2;
      border-radius: 4px;
      color: #ffffff;
      cursor: pointer;
      font-size: 14px;
      font-weight: 600;
      padding: 8px 16px;
    }

    .custom-auth-container .btn.authorize:disabled {
      background: #6c757d;
      border-color: #6c757d;
      cursor: not-allowed;
    }

    .custom-auth-container .auth-separator {
      background: #ebebeb;
      border: none;
      height: 1px;
      margin: 20px 0;
    }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui-bundle.js" crossorigin></script>
  <script src="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui-standalone-preset.js" crossorigin></script>
  <script>
    window.AUTH_URL = '{{.AuthURL}}';

    window.onload = () => {
      window.ui = SwaggerUIBundle({
        url: '{{.SwaggerDocURL}}',
        dom_id: '#swagger-ui',
        deepLinking: true,
        presets: [
          SwaggerUIBundle.presets.apis,
          SwaggerUIStandalonePreset
        ],
        layout: "StandaloneLayout",
        onComplete: function() {
          attachAuthorizeButtonListener();
        }
      });
    };

    const attachAuthorizeButtonListener = () => {
      document.body.addEventListener("click", (event) => {
        if (event.target.closest(".authorize")) {
          setTimeout(addLoginForm, 500);
        }
      });
    };

    const addLoginForm = () => {
      const modalContent = document.querySelector(".modal-ux .modal-ux-content .auth-container");
      if (!modalContent || document.querySelector(".custom-auth-container")) {
        return;
      }
      modalContent.prepend(createAuthContainer());
    };

    const createAuthContainer = () => {
      const authContainer = document.createElement("div");
      authContainer.className = "custom-auth-container";

      authContainer.innerHTML = ` + "`" + `
        <h4>Login</h4>
        <p>Returns a <code>token</code> for use with <code>BearerAuth</code></p>
        <div class="auth-btn-wrapper">
          <label>Username:</label>
          <input id="swagger-username" type="text" placeholder="Username" />
        </div>
        <div class="auth-btn-wrapper">
          <label>Password:</label>
          <input id="swagger-password" type="password" placeholder="Password" />
        </div>
        <div class="auth-btn-wrapper">
          <button id="swagger-login" class="btn authorize unlocked"><span>Login</span></button>
        </div>
        <hr class="auth-separator">
      ` + "`" + `;

      attachLoginFunctionality(authContainer);
      return authContainer;
    };

    const attachLoginFunctionality = (container) => {
      container.querySelector("#swagger-login").onclick = async function () {
        const username = document.getElementById("swagger-username").value;
        const password = document.getElementById("swagger-password").value;
        const loginBtn = this;

        if (!username || !password) {
          alert("Username and password are required.");
          return;
        }

        loginBtn.disabled = true;
        loginBtn.innerHTML = '<span>Logging in...</span>';

        try {
          const response = await fetch(window.AUTH_URL, {
            method: "POST",
            headers: { "Content-Type": "application/json" },
            body: JSON.stringify({ username: username, password: password }),
          });

          const data = await response.json();

          if (response.ok) {
            const token = "Bearer " + (data.data?.access_token || data.access_token);
            window.ui.preauthorizeApiKey("BearerAuth", token);
            alert("Login successful! You are now authorized to use all APIs.");
            document.getElementById("swagger-username").value = '';
            document.getElementById("swagger-password").value = '';
          } else {
            alert("Login failed: " + (data.message || data.error || "Unknown error"));
          }
        } catch (err) {
          alert("An error occurred during login: " + err.message);
        } finally {
          loginBtn.disabled = false;
          loginBtn.innerHTML = '<span>Login</span>';
        }
      };
    };
  </script>
</body>
</html>`

// ServeCleanSwagger renders the Swagger UI with the login-aware Authorize
// dialog. Empty config fields fall back to the standard routes.
func ServeCleanSwagger(config SwaggerConfig) gin.HandlerFunc {
	if config.Title == "" {
		config.Title = "API Documentation"
	}
	if config.SwaggerDocURL == "" {
		config.SwaggerDocURL = "/swagger/doc.json"
	}
	if config.AuthURL == "" {
		config.AuthURL = "/api/v1/user/login"
	}

	tmpl := template.Must(template.New("swagger").Parse(swaggerHTML))

	return func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(c.Writer, config); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render Swagger UI"})
		}
	}
}
