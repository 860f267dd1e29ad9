package rod

// Pages served to the browser tests.
const (
	landingPage = `<!DOCTYPE html>
<html>
<head><title>Kairos Shop</title></head>
<body><h1>Welcome to the shop</h1></body>
</html>`

	signupPage = `<!DOCTYPE html>
<html>
<body>
	<form id="signup">
		<input id="email" type="email" name="email" />
		<button id="register" type="submit">Register</button>
	</form>
</body>
</html>`

	cartPage = `<!DOCTYPE html>
<html>
<body>
	<button id="add">Add to cart</button>
	<span id="count">0</span>
	<script>
		document.getElementById('add').onclick = () => {
			const c = document.getElementById('count');
			c.textContent = String(Number(c.textContent) + 1) + ' item in cart';
		};
	</script>
</body>
</html>`

	catalogPage = `<!DOCTYPE html>
<html>
<body>
	<button id="buy" aria-label="Buy now">Buy</button>
	<input id="search" type="text" placeholder="Search products" />
	<a href="/deals" id="deals">Deals</a>
</body>
</html>`

	longPage = `<!DOCTYPE html>
<html>
<body style="height: 4000px;">
	<h1>Reviews</h1>
	<footer style="margin-top: 3500px;">End of reviews</footer>
</body>
</html>`
)
